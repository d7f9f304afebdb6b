// Package token models custody of the stable token that patrons commit and
// creators return as revenue.
package token

import (
	"errors"
	"fmt"
	"sync"

	"github.com/patronhq/poolengine/account"
	"github.com/patronhq/poolengine/fixedpoint"
)

var (
	// ErrInsufficientBalance indicates a transfer exceeds the sender's balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")

	// ErrZeroAddress indicates a transfer to or from the unset address.
	ErrZeroAddress = errors.New("token: zero address")
)

// Transfer moves Amount from From to To.
type Transfer struct {
	From   account.Address
	To     account.Address
	Amount fixedpoint.Amount
}

// Ledger holds stable-token balances.
type Ledger interface {
	// BalanceOf returns the current balance of addr.
	BalanceOf(addr account.Address) fixedpoint.Amount

	// Settle applies transfers as one atomic unit. The batch is validated
	// first; then commit (if non-nil) runs; balances move only if commit
	// returns nil. No other Settle can interleave.
	Settle(transfers []Transfer, commit func() error) error
}

// BalanceChecker is implemented by ledgers whose balance reads can fail.
type BalanceChecker interface {
	Balance(addr account.Address) (fixedpoint.Amount, error)
}

// Balance reads addr's balance from l, reporting read failures when l is a
// BalanceChecker.
func Balance(l Ledger, addr account.Address) (fixedpoint.Amount, error) {
	if c, ok := l.(BalanceChecker); ok {
		return c.Balance(addr)
	}
	return l.BalanceOf(addr), nil
}

// MemLedger is an in-memory Ledger.
type MemLedger struct {
	mu       sync.Mutex
	balances map[account.Address]fixedpoint.Amount
}

// Compile-time interface check.
var _ Ledger = (*MemLedger)(nil)

// NewMemLedger creates an empty in-memory ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{balances: make(map[account.Address]fixedpoint.Amount)}
}

// BalanceOf returns the current balance of addr.
func (l *MemLedger) BalanceOf(addr account.Address) fixedpoint.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[addr]
}

// Mint credits amount to addr out of thin air. Used to seed balances.
func (l *MemLedger) Mint(addr account.Address, amount fixedpoint.Amount) error {
	if addr.IsZero() {
		return ErrZeroAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := l.balances[addr].Add(amount)
	if err != nil {
		return fmt.Errorf("token: mint: %w", err)
	}
	l.balances[addr] = next
	return nil
}

// Settle applies transfers atomically.
func (l *MemLedger) Settle(transfers []Transfer, commit func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	staged, err := Stage(func(a account.Address) fixedpoint.Amount { return l.balances[a] }, transfers)
	if err != nil {
		return err
	}
	if commit != nil {
		if err := commit(); err != nil {
			return err
		}
	}
	for addr, bal := range staged {
		l.balances[addr] = bal
	}
	return nil
}

// Balances returns a copy of all non-zero balances.
func (l *MemLedger) Balances() map[account.Address]fixedpoint.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[account.Address]fixedpoint.Amount, len(l.balances))
	for addr, bal := range l.balances {
		if bal != 0 {
			out[addr] = bal
		}
	}
	return out
}

// Restore replaces all balances, e.g. after loading them from a store.
func (l *MemLedger) Restore(balances map[account.Address]fixedpoint.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances = make(map[account.Address]fixedpoint.Amount, len(balances))
	for addr, bal := range balances {
		l.balances[addr] = bal
	}
}

// Stage applies transfers in order on top of the balances reported by
// balanceOf and returns the new balances of every touched account. Nothing
// is written; ledgers use it to validate a batch before committing it.
func Stage(balanceOf func(account.Address) fixedpoint.Amount, transfers []Transfer) (map[account.Address]fixedpoint.Amount, error) {
	staged := make(map[account.Address]fixedpoint.Amount)
	get := func(a account.Address) fixedpoint.Amount {
		if v, ok := staged[a]; ok {
			return v
		}
		return balanceOf(a)
	}

	for i, t := range transfers {
		if t.Amount == 0 {
			continue
		}
		if t.From.IsZero() || t.To.IsZero() {
			return nil, fmt.Errorf("%w: transfer %d", ErrZeroAddress, i)
		}
		from, err := get(t.From).Sub(t.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: transfer %d: %s has %s, needs %s",
				ErrInsufficientBalance, i, t.From, get(t.From), t.Amount)
		}
		staged[t.From] = from

		to, err := get(t.To).Add(t.Amount)
		if err != nil {
			return nil, fmt.Errorf("token: transfer %d: %w", i, err)
		}
		staged[t.To] = to
	}
	return staged, nil
}
