package memory

import (
	"context"
	"errors"
	"sync"

	domainerrors "delphi/contexts/finance-core/staking-service/domain/errors"
	"delphi/contexts/finance-core/staking-service/ports"
)

var (
	errBankEscrowExists    = errors.New("escrow already exists")
	errBankEscrowMissing   = errors.New("escrow not found")
	errBankInsufficient    = errors.New("insufficient account balance")
	errBankPayoutImbalance = errors.New("payout does not match escrow balance")
)

// RewardBank is an in-memory treasury gateway used when the staking service
// is wired without the real treasury. It mirrors the treasury's escrow
// semantics and funds rewards from a finite reserve.
type RewardBank struct {
	mu       sync.Mutex
	accounts map[string]int64
	escrows  map[string]int64
	pools    map[string]int64
	reserve  int64
}

func NewRewardBank() *RewardBank {
	return &RewardBank{
		accounts: make(map[string]int64),
		escrows:  make(map[string]int64),
		pools:    make(map[string]int64),
	}
}

func (b *RewardBank) SetBalance(account string, balance int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[account] = balance
}

func (b *RewardBank) Balance(account string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts[account]
}

func (b *RewardBank) FundReserve(amount int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reserve += amount
}

func (b *RewardBank) ReserveBalance() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reserve
}

func (b *RewardBank) PoolBalance(pool string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pools[pool]
}

func (b *RewardBank) OpenEscrow(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.escrows[key]; exists {
		return errBankEscrowExists
	}
	b.escrows[key] = 0
	return nil
}

func (b *RewardBank) FundEscrow(_ context.Context, account, key string, amount int64) error {
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

func (b *RewardBank) ReleaseEscrow(_ context.Context, key string, credits []ports.EscrowCredit) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	balance, exists := b.escrows[key]
	if !exists {
		return errBankEscrowMissing
	}
	total := int64(0)
	for _, credit := range credits {
		total += credit.Amount
	}
	if total != balance {
		return errBankPayoutImbalance
	}
	for _, credit := range credits {
		if credit.Pool != "" {
			b.pools[credit.Pool] += credit.Amount
			continue
		}
		b.accounts[credit.Account] += credit.Amount
	}
	delete(b.escrows, key)
	return nil
}

func (b *RewardBank) PayRewards(_ context.Context, payouts []ports.RewardPayout) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := int64(0)
	for _, payout := range payouts {
		total += payout.Amount
	}
	if total > b.reserve {
		return domainerrors.ErrInsufficientTreasury
	}
	for _, payout := range payouts {
		b.accounts[payout.Account] += payout.Amount
	}
	b.reserve -= total
	return nil
}
