package entities

import "time"

type Phase string

const (
	PhaseCommit   Phase = "commit"
	PhaseReveal   Phase = "reveal"
	PhaseEnded    Phase = "ended"
	PhaseResolved Phase = "resolved"
)

// Commitment is a voter's hidden choice: a Keccak digest over the option,
// the voter's secret salt, and the per-commitment nonce. At most one per
// voter per event.
type Commitment struct {
	Voter       string
	Digest      []byte
	Stake       int64
	Nonce       []byte
	CommittedAt time.Time
	Revealed    bool
}

// Reveal discloses the committed choice. It exists only when a matching
// unrevealed commitment verified against the stored digest.
type Reveal struct {
	Voter       string
	OptionIndex int
	Salt        []byte
	Digest      []byte
	RevealedAt  time.Time
}

// MarketEvent is one prediction market: commit-phase stake escrow, reveal
// verification, and majority resolution. Commitments and reveals keep
// insertion order; tie-breaks and payout ordering depend on it.
type MarketEvent struct {
	EventID         string
	Creator         string
	Title           string
	Description     string
	Options         []string
	StakeAmount     int64
	TotalStaked     int64
	MinParticipants int
	CommitPhaseEnd  time.Time
	RevealPhaseEnd  time.Time
	Commitments     []Commitment
	Reveals         []Reveal
	WinningOption   int
	Resolved        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Phase derives the lifecycle phase from the clock; it never moves backwards
// because the deadlines are immutable and Resolved is monotonic.
func (e MarketEvent) Phase(now time.Time) Phase {
	switch {
	case e.Resolved:
		return PhaseResolved
	case now.Before(e.CommitPhaseEnd):
		return PhaseCommit
	case now.Before(e.RevealPhaseEnd):
		return PhaseReveal
	default:
		return PhaseEnded
	}
}

// CommitmentIndex returns the position of voter's commitment, or -1.
func (e MarketEvent) CommitmentIndex(voter string) int {
	for i, commitment := range e.Commitments {
		if commitment.Voter == voter {
			return i
		}
	}
	return -1
}

// Tally counts reveals per option index.
func (e MarketEvent) Tally() []int {
	counts := make([]int, len(e.Options))
	for _, reveal := range e.Reveals {
		if reveal.OptionIndex >= 0 && reveal.OptionIndex < len(counts) {
			counts[reveal.OptionIndex]++
		}
	}
	return counts
}

// WinnerIndex is the option with the strictly greatest reveal count; ties
// break to the lowest index via a single left-to-right scan.
func (e MarketEvent) WinnerIndex() int {
	counts := e.Tally()
	winner := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[winner] {
			winner = i
		}
	}
	return winner
}

// WinningVoters lists voters who revealed option, in reveal order.
func (e MarketEvent) WinningVoters(option int) []string {
	var voters []string
	for _, reveal := range e.Reveals {
		if reveal.OptionIndex == option {
			voters = append(voters, reveal.Voter)
		}
	}
	return voters
}
