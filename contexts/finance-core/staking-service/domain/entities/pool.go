package entities

import "time"

// Position is one staker's lockup in a pool. Positions are append-only
// history: closing one flips Active off, it is never deleted.
type Position struct {
	Staker                string
	AmountStaked          int64
	StakedAt              time.Time
	UnlockTime            time.Time
	RewardsEarned         int64
	LastRewardCalculation time.Time
	Active                bool
	WithdrawalRequested   bool
}

// Pool is a fixed-terms staking pool. TotalStaked counts active principal
// only; the matching funds sit in the treasury's staking pool under a
// per-position escrow key.
type Pool struct {
	PoolID                        string
	Creator                       string
	LockupDuration                time.Duration
	APYPercent                    int64
	MaxTotalStake                 int64
	MinStakeAmount                int64
	EarlyWithdrawalPenaltyPercent int64
	TotalStaked                   int64
	Positions                     []Position
	Active                        bool
	Paused                        bool
	CreatedAt                     time.Time
	UpdatedAt                     time.Time
}

// ActivePositionIndex returns the index of the staker's active position, or
// -1. A staker holds at most one active position per pool.
func (p Pool) ActivePositionIndex(staker string) int {
	for i := range p.Positions {
		if p.Positions[i].Active && p.Positions[i].Staker == staker {
			return i
		}
	}
	return -1
}

// ActivePositions returns the indexes of all active positions in insertion
// order. External reward distribution weighs these by principal.
func (p Pool) ActivePositions() []int {
	indexes := make([]int, 0, len(p.Positions))
	for i := range p.Positions {
		if p.Positions[i].Active {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// Open reports whether the pool accepts new stakes.
func (p Pool) Open() bool {
	return p.Active && !p.Paused
}

func (p Pool) Clone() Pool {
	clone := p
	clone.Positions = append([]Position(nil), p.Positions...)
	return clone
}
