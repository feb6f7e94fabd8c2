package entities

import "time"

type Pool string

const (
	PoolStaking       Pool = "staking"
	PoolOperational   Pool = "operational"
	PoolRewardReserve Pool = "reward_reserve"
	PoolInsurance     Pool = "insurance"
)

func KnownPool(pool Pool) bool {
	switch pool {
	case PoolStaking, PoolOperational, PoolRewardReserve, PoolInsurance:
		return true
	default:
		return false
	}
}

// Ledger is the singleton custody state. Escrow sub-balances are tracked
// inside the staking pool, so the conservation identity is:
// sum(Pools) + sum(Accounts) == TotalDeposits - TotalWithdrawals.
type Ledger struct {
	Pools            map[Pool]int64
	Escrows          map[string]int64
	Accounts         map[string]int64
	TotalDeposits    int64
	TotalWithdrawals int64
	UpdatedAt        time.Time
}

func NewLedger() Ledger {
	return Ledger{
		Pools: map[Pool]int64{
			PoolStaking:       0,
			PoolOperational:   0,
			PoolRewardReserve: 0,
			PoolInsurance:     0,
		},
		Escrows:  make(map[string]int64),
		Accounts: make(map[string]int64),
	}
}

// Clone deep-copies the ledger so a failed operation can discard its working
// copy without touching committed state.
func (l Ledger) Clone() Ledger {
	out := Ledger{
		Pools:            make(map[Pool]int64, len(l.Pools)),
		Escrows:          make(map[string]int64, len(l.Escrows)),
		Accounts:         make(map[string]int64, len(l.Accounts)),
		TotalDeposits:    l.TotalDeposits,
		TotalWithdrawals: l.TotalWithdrawals,
		UpdatedAt:        l.UpdatedAt,
	}
	for pool, balance := range l.Pools {
		out.Pools[pool] = balance
	}
	for key, balance := range l.Escrows {
		out.Escrows[key] = balance
	}
	for account, balance := range l.Accounts {
		out.Accounts[account] = balance
	}
	return out
}

func (l Ledger) PoolTotal() int64 {
	var total int64
	for _, balance := range l.Pools {
		total += balance
	}
	return total
}

func (l Ledger) AccountTotal() int64 {
	var total int64
	for _, balance := range l.Accounts {
		total += balance
	}
	return total
}

func (l Ledger) EscrowTotal() int64 {
	var total int64
	for _, balance := range l.Escrows {
		total += balance
	}
	return total
}

// Balanced reports whether the conservation identity holds.
func (l Ledger) Balanced() bool {
	if l.PoolTotal()+l.AccountTotal() != l.TotalDeposits-l.TotalWithdrawals {
		return false
	}
	return l.EscrowTotal() <= l.Pools[PoolStaking]
}
