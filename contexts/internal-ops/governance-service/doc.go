// Package governanceservice implements the multisig council: a fixed signer
// set approving typed operations (emergency pause, market resolution,
// treasury movements, the staking emergency-withdrawal switch) with an
// approval threshold. Reaching the threshold dispatches the operation
// exactly once through typed executor ports.
package governanceservice
