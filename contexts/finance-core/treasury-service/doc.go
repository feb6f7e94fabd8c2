// Package treasuryservice implements the custody ledger inside the
// finance-core context.
//
// The module is the only component allowed to move value. It tracks named
// pools (staking, operational, reward reserve, insurance), per-market escrow
// sub-balances, and per-user custody accounts, and keeps deposit/withdrawal
// audit counters so conservation can be verified at any time. Business rules
// live in application/domain layers; infrastructure sits behind ports and
// adapters.
package treasuryservice
