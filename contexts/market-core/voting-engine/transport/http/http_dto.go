package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateEventRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Options         []string `json:"options"`
	CommitHours     int      `json:"commit_hours"`
	RevealHours     int      `json:"reveal_hours"`
	StakeAmount     int64    `json:"stake_amount"`
	MinParticipants int      `json:"min_participants"`
}

type EventResponse struct {
	EventID         string    `json:"event_id"`
	Creator         string    `json:"creator"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Options         []string  `json:"options"`
	StakeAmount     int64     `json:"stake_amount"`
	TotalStaked     int64     `json:"total_staked"`
	MinParticipants int       `json:"min_participants"`
	CommitPhaseEnd  time.Time `json:"commit_phase_end"`
	RevealPhaseEnd  time.Time `json:"reveal_phase_end"`
	Phase           string    `json:"phase"`
	Resolved        bool      `json:"resolved"`
	WinningOption   int       `json:"winning_option"`
}

type PlaceCommitmentRequest struct {
	EventID string `json:"event_id"`
	Digest  string `json:"digest"` // hex, 32 bytes
	Stake   int64  `json:"stake"`
	Nonce   string `json:"nonce"` // hex, 32 bytes
}

type CommitmentResponse struct {
	EventID     string    `json:"event_id"`
	Voter       string    `json:"voter"`
	Stake       int64     `json:"stake"`
	CommittedAt time.Time `json:"committed_at"`
}

type RevealVoteRequest struct {
	EventID     string `json:"event_id"`
	OptionIndex int    `json:"option_index"`
	Salt        string `json:"salt"` // hex, 32 bytes
}

type RevealResponse struct {
	EventID     string    `json:"event_id"`
	Voter       string    `json:"voter"`
	OptionIndex int       `json:"option_index"`
	RevealedAt  time.Time `json:"revealed_at"`
}

type ResolveResponse struct {
	EventID        string   `json:"event_id"`
	WinningOption  int      `json:"winning_option"`
	Tally          []int    `json:"tally"`
	Winners        []string `json:"winners"`
	PerWinnerShare int64    `json:"per_winner_share"`
	PlatformAmount int64    `json:"platform_amount"`
}

type VoterStatusResponse struct {
	EventID   string `json:"event_id"`
	Voter     string `json:"voter"`
	Committed bool   `json:"committed"`
	Revealed  bool   `json:"revealed"`
	Stake     int64  `json:"stake,omitempty"`
}

type TallyResponse struct {
	EventID       string `json:"event_id"`
	Phase         string `json:"phase"`
	Counts        []int  `json:"counts"`
	RevealCount   int    `json:"reveal_count"`
	CommitCount   int    `json:"commit_count"`
	TotalStaked   int64  `json:"total_staked"`
	Resolved      bool   `json:"resolved"`
	WinningOption int    `json:"winning_option"`
}

type EventListResponse struct {
	Items []EventResponse `json:"items"`
}
