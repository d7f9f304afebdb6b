// Package pool implements the patronage pool accounting engine: tiers,
// commitments, the funding lifecycle, capital custody and revenue
// distribution. Every Pool serializes its own operations; independent
// pools proceed concurrently.
package pool

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/patronhq/poolengine/account"
	"github.com/patronhq/poolengine/event"
	"github.com/patronhq/poolengine/fixedpoint"
	"github.com/patronhq/poolengine/token"
)

// Store persists pool state. SavePool is called inside the token ledger's
// settlement, so a failed save aborts the whole operation.
type Store interface {
	SavePool(s *State) error
	LoadPools() ([]*State, error)
}

// Pool is the single authority over one pool's state.
type Pool struct {
	mu     sync.Mutex
	state  *State
	ledger token.Ledger
	store  Store
	sink   event.Sink
	log    logrus.FieldLogger

	custody *custodySet // every registered pool's custody account
}

func newPool(st *State, ledger token.Ledger, store Store, sink event.Sink, log logrus.FieldLogger, custody *custodySet) *Pool {
	if sink == nil {
		sink = event.Discard
	}
	return &Pool{
		state:   st,
		ledger:  ledger,
		store:   store,
		sink:    sink,
		log:     log.WithField("pool_id", st.ID),
		custody: custody,
	}
}

// txn is a pending mutation. It works on a private copy of the state and
// collects the token transfers and events the mutation produces.
type txn struct {
	st        *State
	now       time.Time
	transfers []token.Transfer
	events    []event.Event
	custody   *custodySet
}

// isCustody reports whether addr is this pool's custody account or that of
// any other registered pool. Custody accounts never act as counterparties.
func (tx *txn) isCustody(addr account.Address) bool {
	return addr == tx.st.Custody || tx.custody.has(addr)
}

func (tx *txn) transfer(from, to account.Address, amount fixedpoint.Amount) {
	if amount == 0 {
		return
	}
	tx.transfers = append(tx.transfers, token.Transfer{From: from, To: to, Amount: amount})
}

func (tx *txn) emit(e event.Event) error {
	tx.st.EventSeq++
	e.Seq = tx.st.EventSeq
	e.PoolID = tx.st.ID
	e.Status = tx.st.Status.String()
	e.Time = tx.now
	id, err := event.ReceiptID(&e)
	if err != nil {
		return err
	}
	e.ID = id
	tx.events = append(tx.events, e)
	return nil
}

func (tx *txn) setStatus(to Status, actor account.Address) error {
	from := tx.st.Status
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	tx.st.Status = to
	return tx.emit(event.Event{
		Kind:       event.KindStatusChanged,
		Actor:      actor,
		Tier:       event.NoTier,
		PrevStatus: from.String(),
	})
}

// checkStatus applies the time and total driven transitions. The funded
// checks run before the end-time check, so reaching the target at the
// deadline funds the pool.
func (tx *txn) checkStatus() error {
	st := tx.st
	if !st.Status.autoTransitions() {
		return nil
	}
	reached := st.TotalCommitted >= st.Target
	if reached && st.TargetReachedTime.IsZero() {
		st.TargetReachedTime = tx.now
	}
	switch {
	case st.Capped() && st.TotalCommitted >= st.Cap:
		return tx.setStatus(StatusFullyFunded, account.Zero)
	case st.Status == StatusActive && reached:
		return tx.setStatus(StatusFunded, account.Zero)
	case st.Status == StatusActive && tx.now.After(st.EndTime):
		return tx.setStatus(StatusFailed, account.Zero)
	}
	return nil
}

// apply runs fn against a copy of the state. If fn succeeds and produced
// events, the transfers and the new state are settled as one unit through
// the ledger and the events are emitted. Callers must hold p.mu.
func (p *Pool) apply(now time.Time, fn func(tx *txn) error) error {
	tx := &txn{st: p.state.clone(), now: now, custody: p.custody}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.events) == 0 {
		return nil
	}

	commit := func() error {
		if p.store != nil {
			if err := p.store.SavePool(tx.st); err != nil {
				return fmt.Errorf("pool: persist %s: %w", tx.st.ID, err)
			}
		}
		p.state = tx.st
		return nil
	}
	if err := p.ledger.Settle(tx.transfers, commit); err != nil {
		return err
	}

	for _, e := range tx.events {
		p.sink.Emit(e)
	}
	p.log.WithFields(logrus.Fields{
		"events":    len(tx.events),
		"transfers": len(tx.transfers),
		"status":    tx.st.Status.String(),
	}).Debug("pool state committed")
	return nil
}

// refresh re-evaluates the lifecycle status before an operation so that a
// stale status never admits it. The transition commits on its own.
func (p *Pool) refresh(now time.Time) error {
	return p.apply(now, func(tx *txn) error { return tx.checkStatus() })
}

// run refreshes the status and then applies fn.
func (p *Pool) run(now time.Time, fn func(tx *txn) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.refresh(now); err != nil {
		return err
	}
	return p.apply(now, fn)
}

func (tx *txn) requireOwner(requester account.Address) error {
	if requester != tx.st.Owner {
		return fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, requester)
	}
	return nil
}

// CheckStatus re-evaluates the time and total driven transitions and
// returns the resulting status. Anyone may call it.
func (p *Pool) CheckStatus(now time.Time) (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.refresh(now); err != nil {
		return p.state.Status, err
	}
	return p.state.Status, nil
}

// ID returns the pool id.
func (p *Pool) ID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.ID
}

// Status returns the current status without re-evaluating it.
func (p *Pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Status
}

// Custody returns the account holding the pool's tokens.
func (p *Pool) Custody() account.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Custody
}

// Snapshot returns a deep copy of the pool state.
func (p *Pool) Snapshot() *State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.clone()
}

// Tiers returns a copy of the tier list.
func (p *Pool) Tiers() []Tier {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Tier(nil), p.state.Tiers...)
}

// Commitments returns the commitments of patron in commit order.
func (p *Pool) Commitments(patron account.Address) []Commitment {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Commitment
	for _, c := range p.state.Commitments {
		if c.Patron == patron {
			out = append(out, c)
		}
	}
	return out
}

// SharesOf returns patron's LP share balance.
func (p *Pool) SharesOf(patron account.Address) fixedpoint.Amount {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h := p.state.holder(patron); h != nil {
		return h.Shares
	}
	return 0
}

// Holders returns the addresses holding a position, sorted.
func (p *Pool) Holders() []account.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return sortedHolders(p.state)
}

func sortedHolders(st *State) []account.Address {
	addrs := make([]account.Address, 0, len(st.Holders))
	for addr := range st.Holders {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return string(addrs[i][:]) < string(addrs[j][:])
	})
	return addrs
}
