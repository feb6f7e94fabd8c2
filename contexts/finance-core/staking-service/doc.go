// Package stakingservice manages lockup staking pools: pool creation, stake
// and unstake with reward accrual and early-withdrawal penalties, and
// pro-rata external reward distribution. Principal always moves through the
// treasury's escrow ledger; the service itself never holds balances.
package stakingservice
