package errors

import "errors"

var (
	ErrNotInitialized    = errors.New("governance council not initialized")
	ErrInvalidCouncil    = errors.New("invalid council configuration")
	ErrInvalidOperation  = errors.New("invalid governance operation payload")
	ErrNotAuthorized     = errors.New("caller is not a council signer")
	ErrTooManyPending    = errors.New("pending operation capacity reached")
	ErrOperationNotFound = errors.New("governance operation not found")
	ErrOperationExpired  = errors.New("governance operation expired")
	ErrAlreadyApproved   = errors.New("signer already approved this operation")
)
