package memory

import (
	"context"
	"errors"
	"sync"

	"delphi/contexts/market-core/voting-engine/ports"
)

var (
	errBankEscrowExists    = errors.New("escrow already exists")
	errBankEscrowMissing   = errors.New("escrow not found")
	errBankInsufficient    = errors.New("insufficient account balance")
	errBankPayoutImbalance = errors.New("payout does not match escrow balance")
)

// EscrowBank is an in-memory treasury gateway used when the engine is wired
// without the real treasury service. It mirrors the treasury's escrow
// semantics including the exact-balance release check.
type EscrowBank struct {
	mu       sync.Mutex
	accounts map[string]int64
	escrows  map[string]int64
	platform int64
}

func NewEscrowBank() *EscrowBank {
	return &EscrowBank{
		accounts: make(map[string]int64),
		escrows:  make(map[string]int64),
	}
}

func (b *EscrowBank) SetBalance(account string, balance int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[account] = balance
}

func (b *EscrowBank) Balance(account string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts[account]
}

func (b *EscrowBank) PlatformBalance() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.platform
}

func (b *EscrowBank) OpenEscrow(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.escrows[key]; exists {
		return errBankEscrowExists
	}
	b.escrows[key] = 0
	return nil
}

func (b *EscrowBank) FundEscrow(_ context.Context, account, key string, amount int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.escrows[key]; !exists {
		return errBankEscrowMissing
	}
	if b.accounts[account] < amount {
		return errBankInsufficient
	}
	b.accounts[account] -= amount
	b.escrows[key] += amount
	return nil
}

func (b *EscrowBank) ReleaseEscrow(_ context.Context, key string, payout ports.EscrowPayout) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	balance, exists := b.escrows[key]
	if !exists {
		return errBankEscrowMissing
	}
	total := payout.Platform
	for _, credit := range payout.Accounts {
		total += credit.Amount
	}
	if total != balance {
		return errBankPayoutImbalance
	}
	for _, credit := range payout.Accounts {
		b.accounts[credit.Account] += credit.Amount
	}
	b.platform += payout.Platform
	delete(b.escrows, key)
	return nil
}
