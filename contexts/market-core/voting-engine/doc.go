// Package votingengine implements the commit-reveal prediction engine inside
// the market-core context.
//
// The module owns market event lifecycle orchestration (create, commit,
// reveal, resolve, cancel), tally reads, and market event production through
// outbox-backed workers. Stake custody routes through the treasury gateway
// port; the module never touches balances directly. Business rules live in
// application/domain layers and infrastructure sits behind ports and
// adapters.
package votingengine
