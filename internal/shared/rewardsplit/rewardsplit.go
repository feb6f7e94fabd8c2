// Package rewardsplit computes escrow payout splits. It is pure calculation:
// callers apply the resulting shares through the treasury, never here.
package rewardsplit

import (
	"errors"

	"delphi/internal/shared/money"
)

var (
	ErrInvalidSplit   = errors.New("split percentages must be non-negative and sum to 100")
	ErrInvalidTotal   = errors.New("total must not be negative")
	ErrInvalidWeights = errors.New("weights must be positive")
)

// Split is a winner/creator/platform percentage triple.
type Split struct {
	WinnerPct   int64
	CreatorPct  int64
	PlatformPct int64
}

// VotingPayout is the default market payout split.
var VotingPayout = Split{WinnerPct: 80, CreatorPct: 0, PlatformPct: 20}

// CreatorPayout rewards the market creator alongside winners.
var CreatorPayout = Split{WinnerPct: 60, CreatorPct: 5, PlatformPct: 35}

func (s Split) Validate() error {
	if s.WinnerPct < 0 || s.CreatorPct < 0 || s.PlatformPct < 0 {
		return ErrInvalidSplit
	}
	if s.WinnerPct+s.CreatorPct+s.PlatformPct != 100 {
		return ErrInvalidSplit
	}
	return nil
}

// Share is one recipient payout.
type Share struct {
	Recipient string
	Amount    int64
}

// Distribution is the full allocation of a pot. Winners plus Creator plus
// Platform always sum to the input total exactly.
type Distribution struct {
	Winners  []Share
	Creator  Share
	Platform int64
}

// Distribute splits total across winners, creator, and platform. The winner
// share is divided evenly; any integer-division remainder is absorbed by the
// platform amount rather than dropped. With zero winners the entire winner
// share rolls into the platform amount.
func Distribute(total int64, split Split, winners []string, creator string) (Distribution, error) {
	if total < 0 {
		return Distribution{}, ErrInvalidTotal
	}
	if err := split.Validate(); err != nil {
		return Distribution{}, err
	}

	winnerPot, err := money.Percent(total, split.WinnerPct)
	if err != nil {
		return Distribution{}, err
	}
	creatorAmount := int64(0)
	if creator != "" && split.CreatorPct > 0 {
		creatorAmount, err = money.Percent(total, split.CreatorPct)
		if err != nil {
			return Distribution{}, err
		}
	}

	dist := Distribution{
		Creator: Share{Recipient: creator, Amount: creatorAmount},
	}

	allocated := creatorAmount
	if len(winners) > 0 {
		perWinner := winnerPot / int64(len(winners))
		dist.Winners = make([]Share, 0, len(winners))
		for _, w := range winners {
			dist.Winners = append(dist.Winners, Share{Recipient: w, Amount: perWinner})
			allocated += perWinner
		}
	}

	// Platform takes its own share plus every remainder, so the pot is
	// conserved to the unit.
	dist.Platform = total - allocated
	return dist, nil
}

// ProRata splits total across weights proportionally. The rounding remainder
// goes to the largest weight (first on ties) so the output always sums to
// total. Used for external reward distribution across staking positions.
func ProRata(total int64, weights []int64) ([]int64, error) {
	if total < 0 {
		return nil, ErrInvalidTotal
	}
	if len(weights) == 0 {
		return nil, ErrInvalidWeights
	}

	var sum int64
	largest := 0
	for i, w := range weights {
		if w <= 0 {
			return nil, ErrInvalidWeights
		}
		next, err := money.Add(sum, w)
		if err != nil {
			return nil, err
		}
		sum = next
		if w > weights[largest] {
			largest = i
		}
	}

	out := make([]int64, len(weights))
	var allocated int64
	for i, w := range weights {
		share, err := money.MulDiv(total, w, sum)
		if err != nil {
			return nil, err
		}
		out[i] = share
		allocated += share
	}
	out[largest] += total - allocated
	return out, nil
}
