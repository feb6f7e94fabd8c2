package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type InitializeRequest struct {
	Signers   []string `json:"signers"`
	Threshold int      `json:"threshold"`
}

type CouncilResponse struct {
	Signers     []string `json:"signers"`
	Threshold   int      `json:"threshold"`
	Initialized bool     `json:"initialized"`
	Paused      bool     `json:"paused"`
}

type ProposeRequest struct {
	Kind      string `json:"kind"`
	EventID   string `json:"event_id,omitempty"`
	Pool      string `json:"pool,omitempty"`
	ToPool    string `json:"to_pool,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
	Enabled   bool   `json:"enabled,omitempty"`
}

type OperationResponse struct {
	OperationID string    `json:"operation_id"`
	Kind        string    `json:"kind"`
	EventID     string    `json:"event_id,omitempty"`
	Pool        string    `json:"pool,omitempty"`
	ToPool      string    `json:"to_pool,omitempty"`
	Recipient   string    `json:"recipient,omitempty"`
	Amount      int64     `json:"amount,omitempty"`
	Enabled     bool      `json:"enabled,omitempty"`
	Proposer    string    `json:"proposer"`
	Approvers   []string  `json:"approvers"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ApproveResponse struct {
	OperationID string `json:"operation_id"`
	Kind        string `json:"kind"`
	Approvals   int    `json:"approvals"`
	Threshold   int    `json:"threshold"`
	Executed    bool   `json:"executed"`
}

type OperationListResponse struct {
	Items []OperationResponse `json:"items"`
}
