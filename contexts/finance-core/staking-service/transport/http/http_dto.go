package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreatePoolRequest struct {
	LockupHours                   int   `json:"lockup_hours"`
	APYPercent                    int64 `json:"apy_percent"`
	MaxTotalStake                 int64 `json:"max_total_stake"`
	MinStakeAmount                int64 `json:"min_stake_amount"`
	EarlyWithdrawalPenaltyPercent int64 `json:"early_withdrawal_penalty_percent"`
}

type PoolResponse struct {
	PoolID                        string    `json:"pool_id"`
	Creator                       string    `json:"creator"`
	LockupHours                   int       `json:"lockup_hours"`
	APYPercent                    int64     `json:"apy_percent"`
	MaxTotalStake                 int64     `json:"max_total_stake"`
	MinStakeAmount                int64     `json:"min_stake_amount"`
	EarlyWithdrawalPenaltyPercent int64     `json:"early_withdrawal_penalty_percent"`
	TotalStaked                   int64     `json:"total_staked"`
	ActivePositions               int       `json:"active_positions"`
	Active                        bool      `json:"active"`
	Paused                        bool      `json:"paused"`
	CreatedAt                     time.Time `json:"created_at"`
}

type StakeRequest struct {
	PoolID string `json:"pool_id"`
	Amount int64  `json:"amount"`
}

type PositionResponse struct {
	PoolID              string    `json:"pool_id"`
	Staker              string    `json:"staker"`
	AmountStaked        int64     `json:"amount_staked"`
	StakedAt            time.Time `json:"staked_at"`
	UnlockTime          time.Time `json:"unlock_time"`
	RewardsEarned       int64     `json:"rewards_earned"`
	WithdrawalRequested bool      `json:"withdrawal_requested"`
	Active              bool      `json:"active"`
}

type UnstakeResponse struct {
	PoolID    string `json:"pool_id"`
	Staker    string `json:"staker"`
	Principal int64  `json:"principal"`
	Reward    int64  `json:"reward"`
	Penalty   int64  `json:"penalty"`
	Early     bool   `json:"early"`
}

type DistributeRewardRequest struct {
	PoolID string `json:"pool_id"`
	Amount int64  `json:"amount"`
}

type DistributeRewardResponse struct {
	PoolID     string  `json:"pool_id"`
	Amount     int64   `json:"amount"`
	Shares     []int64 `json:"shares"`
	Recipients int     `json:"recipients"`
}

type ProjectedRewardResponse struct {
	PoolID string `json:"pool_id"`
	Staker string `json:"staker"`
	Reward int64  `json:"reward"`
}

type PoolListResponse struct {
	Items []PoolResponse `json:"items"`
}
