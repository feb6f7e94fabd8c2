package errors

import "errors"

var (
	ErrInvalidEventInput        = errors.New("invalid market event input")
	ErrEventNotFound            = errors.New("market event not found")
	ErrSystemPaused             = errors.New("system is paused")
	ErrRateLimitExceeded        = errors.New("creator open-event limit exceeded")
	ErrCommitPhaseClosed        = errors.New("commit phase has ended")
	ErrCommitPhaseOpen          = errors.New("reveal phase has not started")
	ErrRevealPhaseClosed        = errors.New("reveal phase has ended")
	ErrAlreadyCommitted         = errors.New("voter already committed on this event")
	ErrInvalidStake             = errors.New("stake must equal the event stake amount")
	ErrMalformedDigest          = errors.New("commitment digest must be 32 bytes")
	ErrMalformedSalt            = errors.New("salt must be 32 bytes")
	ErrMalformedNonce           = errors.New("nonce must be 32 bytes")
	ErrOptionOutOfRange         = errors.New("option index out of range")
	ErrNotCommitted             = errors.New("no unrevealed commitment for voter")
	ErrInvalidReveal            = errors.New("reveal does not match commitment digest")
	ErrVotingNotEnded           = errors.New("reveal phase has not ended")
	ErrAlreadyResolved          = errors.New("event is already resolved")
	ErrInsufficientParticipants = errors.New("not enough revealed participants")
	ErrNotAuthorized            = errors.New("caller is not an authorized signer")
)
