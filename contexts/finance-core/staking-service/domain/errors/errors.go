package errors

import "errors"

var (
	ErrInvalidPoolInput     = errors.New("invalid staking pool input")
	ErrPoolNotFound         = errors.New("staking pool not found")
	ErrPoolInactive         = errors.New("staking pool is inactive or paused")
	ErrInvalidStake         = errors.New("stake amount outside pool limits")
	ErrPoolCapExceeded      = errors.New("pool capacity exceeded")
	ErrDailyLimitExceeded   = errors.New("daily staking limit exceeded")
	ErrRateLimitExceeded    = errors.New("creator pool limit reached")
	ErrSystemPaused         = errors.New("system is paused")
	ErrAlreadyStaked        = errors.New("staker already holds an active position in this pool")
	ErrPositionNotFound     = errors.New("no active position for staker")
	ErrInsufficientTreasury = errors.New("treasury cannot cover the payout")
	ErrNotAuthorized        = errors.New("caller is not authorized")
	ErrNothingToDistribute  = errors.New("no active positions to distribute to")
)
