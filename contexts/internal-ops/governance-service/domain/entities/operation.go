package entities

import (
	"strings"
	"time"

	domainerrors "delphi/contexts/internal-ops/governance-service/domain/errors"
)

type OperationKind string

const (
	OpEmergencyPause         OperationKind = "emergency_pause"
	OpEmergencyUnpause       OperationKind = "emergency_unpause"
	OpResolveMarket          OperationKind = "resolve_market"
	OpTreasuryWithdraw       OperationKind = "treasury_withdraw"
	OpTreasuryTransfer       OperationKind = "treasury_transfer"
	OpSetEmergencyWithdrawal OperationKind = "set_emergency_withdrawal"
)

// Operation is the typed payload of a multisig proposal. Only the fields the
// kind requires are set; Validate enforces that at proposal time so dispatch
// never sees a half-formed payload.
type Operation struct {
	Kind      OperationKind
	EventID   string
	Pool      string
	ToPool    string
	Recipient string
	Amount    int64
	Enabled   bool
}

func (o Operation) Validate() error {
	switch o.Kind {
	case OpEmergencyPause, OpEmergencyUnpause:
		return nil
	case OpResolveMarket:
		if strings.TrimSpace(o.EventID) == "" {
			return domainerrors.ErrInvalidOperation
		}
	case OpTreasuryWithdraw:
		if strings.TrimSpace(o.Pool) == "" || strings.TrimSpace(o.Recipient) == "" || o.Amount <= 0 {
			return domainerrors.ErrInvalidOperation
		}
	case OpTreasuryTransfer:
		if strings.TrimSpace(o.Pool) == "" || strings.TrimSpace(o.ToPool) == "" || o.Pool == o.ToPool || o.Amount <= 0 {
			return domainerrors.ErrInvalidOperation
		}
	case OpSetEmergencyWithdrawal:
		return nil
	default:
		return domainerrors.ErrInvalidOperation
	}
	return nil
}

// PendingOperation is a proposal awaiting approvals. Approvers are distinct
// and ordered; the proposer is always the first approver.
type PendingOperation struct {
	OperationID string
	Operation   Operation
	Proposer    string
	Approvers   []string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

func (p PendingOperation) HasApproved(signer string) bool {
	for _, approver := range p.Approvers {
		if approver == signer {
			return true
		}
	}
	return false
}

func (p PendingOperation) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

func (p PendingOperation) Clone() PendingOperation {
	clone := p
	clone.Approvers = append([]string(nil), p.Approvers...)
	return clone
}

// Council is the multisig configuration. Initialize is one-shot; once set,
// signers and threshold are immutable.
type Council struct {
	Signers     []string
	Threshold   int
	Initialized bool
}

func (c Council) IsSigner(address string) bool {
	for _, signer := range c.Signers {
		if signer == address {
			return true
		}
	}
	return false
}

func (c Council) Clone() Council {
	clone := c
	clone.Signers = append([]string(nil), c.Signers...)
	return clone
}
