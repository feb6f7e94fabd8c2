package memory

import (
	"context"
	"sync"
)

// ExecutorRecorder is a test double for all three executor ports. It records
// every dispatched call and can be primed to fail.
type ExecutorRecorder struct {
	mu        sync.Mutex
	FailOnce  error
	Resolved  []string
	Withdraws []WithdrawCall
	Transfers []TransferCall
	Emergency []bool
}

type WithdrawCall struct {
	Pool      string
	Recipient string
	Amount    int64
}

type TransferCall struct {
	From   string
	To     string
	Amount int64
}

func (r *ExecutorRecorder) takeFailure() error {
	err := r.FailOnce
	r.FailOnce = nil
	return err
}

func (r *ExecutorRecorder) ResolveMarket(_ context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	r.Resolved = append(r.Resolved, eventID)
	return nil
}

func (r *ExecutorRecorder) WithdrawFromPool(_ context.Context, pool, recipient string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	r.Withdraws = append(r.Withdraws, WithdrawCall{Pool: pool, Recipient: recipient, Amount: amount})
	return nil
}

func (r *ExecutorRecorder) TransferBetweenPools(_ context.Context, from, to string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	r.Transfers = append(r.Transfers, TransferCall{From: from, To: to, Amount: amount})
	return nil
}

func (r *ExecutorRecorder) SetEmergencyWithdrawal(_ context.Context, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	r.Emergency = append(r.Emergency, enabled)
	return nil
}
