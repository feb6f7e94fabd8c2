package errors

import "errors"

var (
	ErrInvalidAmount              = errors.New("amount must be positive")
	ErrUnknownPool                = errors.New("unknown treasury pool")
	ErrInsufficientPoolBalance    = errors.New("insufficient pool balance")
	ErrInsufficientAccountBalance = errors.New("insufficient account balance")
	ErrAccountRequired            = errors.New("account id is required")
	ErrEscrowExists               = errors.New("escrow already exists")
	ErrEscrowNotFound             = errors.New("escrow not found")
	ErrEscrowImbalance            = errors.New("escrow credits do not match escrow balance")
	ErrConservationViolated       = errors.New("ledger conservation check failed")
)
