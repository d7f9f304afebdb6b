package pool

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/patronhq/poolengine/account"
	"github.com/patronhq/poolengine/event"
	"github.com/patronhq/poolengine/fixedpoint"
	"github.com/patronhq/poolengine/token"
)

// CustodyDomain is the derivation domain of pool custody accounts.
const CustodyDomain = "pool-custody"

// Params describes a new pool.
type Params struct {
	Name         string
	Owner        account.Address
	Target       fixedpoint.Amount
	Cap          fixedpoint.Amount // 0 = uncapped
	EndTime      time.Time
	FeeRecipient account.Address
	FeeBps       uint32
	Tiers        []TierSpec
	Activate     bool // open for commitments right away
}

// Validate checks p against creation time now.
func (p Params) Validate(now time.Time) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidParams)
	case p.Owner.IsZero():
		return fmt.Errorf("%w: owner", ErrInvalidAccount)
	case p.Target == 0:
		return fmt.Errorf("%w: target must be positive", ErrInvalidParams)
	case p.Cap != 0 && p.Cap < p.Target:
		return fmt.Errorf("%w: cap %s below target %s", ErrInvalidParams, p.Cap, p.Target)
	case !p.EndTime.After(now):
		return fmt.Errorf("%w: end time %s is not in the future", ErrInvalidParams, p.EndTime.Format(time.RFC3339))
	case p.FeeBps > fixedpoint.BpsBase:
		return fmt.Errorf("%w: %d", ErrInvalidFee, p.FeeBps)
	case p.Activate && len(p.Tiers) == 0:
		return ErrNoTiers
	}
	for _, t := range p.Tiers {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Options configures a Registry. All fields are optional.
type Options struct {
	Store  Store
	Sink   event.Sink
	Logger logrus.FieldLogger
}

// custodySet holds the custody accounts of registered pools. It has its
// own lock so pool operations can consult it while holding their pool's.
type custodySet struct {
	mu       sync.RWMutex
	accounts map[account.Address]string // custody -> pool id
}

func (c *custodySet) add(addr account.Address, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[addr] = id
}

func (c *custodySet) has(addr account.Address) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.accounts[addr]
	return ok
}

// Registry owns every pool of one engine instance.
type Registry struct {
	mu      sync.RWMutex
	pools   map[string]*Pool
	custody *custodySet
	ledger  token.Ledger
	store   Store
	sink    event.Sink
	log     logrus.FieldLogger
}

// NewRegistry creates an empty registry settling through ledger.
func NewRegistry(ledger token.Ledger, opts Options) *Registry {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Registry{
		pools:   make(map[string]*Pool),
		custody: &custodySet{accounts: make(map[account.Address]string)},
		ledger:  ledger,
		store:   opts.Store,
		sink:    opts.Sink,
		log:     log,
	}
}

// Create validates params, creates the pool with its tiers and fee
// configuration, persists it and registers it.
func (r *Registry) Create(params Params, now time.Time) (*Pool, error) {
	if err := params.Validate(now); err != nil {
		return nil, err
	}
	if r.custody.has(params.Owner) {
		return nil, fmt.Errorf("%w: owner %s is a pool custody account", ErrInvalidAccount, params.Owner)
	}
	id := uuid.NewString()
	st := &State{
		ID:        id,
		Name:      params.Name,
		Owner:     params.Owner,
		Custody:   account.Derive(CustodyDomain, id),
		Target:    params.Target,
		Cap:       params.Cap,
		CreatedAt: now,
		EndTime:   params.EndTime,
		Status:    StatusInactive,
		Holders:   make(map[account.Address]*Holder),
	}
	p := newPool(st, r.ledger, r.store, r.sink, r.log, r.custody)

	p.mu.Lock()
	err := p.apply(now, func(tx *txn) error {
		if err := tx.emit(event.Event{
			Kind:   event.KindPoolCreated,
			Actor:  params.Owner,
			Amount: params.Target,
			Tier:   event.NoTier,
		}); err != nil {
			return err
		}
		for _, spec := range params.Tiers {
			if _, err := tx.addTier(params.Owner, spec); err != nil {
				return err
			}
		}
		if !params.FeeRecipient.IsZero() || params.FeeBps != 0 {
			if err := tx.setFee(params.FeeRecipient, params.FeeBps); err != nil {
				return err
			}
		}
		if params.Activate {
			return tx.setStatus(StatusActive, params.Owner)
		}
		return nil
	})
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.pools[id] = p
	r.mu.Unlock()
	r.custody.add(st.Custody, id)

	p.log.WithFields(logrus.Fields{
		"account": params.Owner.Hex(),
		"target":  params.Target.String(),
		"tiers":   len(params.Tiers),
	}).Info("pool created")
	return p, nil
}

// Get returns the pool with the given id.
func (r *Registry) Get(id string) (*Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	}
	return p, nil
}

// List returns all pools ordered by creation time, then id.
func (r *Registry) List() []*Pool {
	r.mu.RLock()
	type entry struct {
		created time.Time
		id      string
		p       *Pool
	}
	entries := make([]entry, 0, len(r.pools))
	for id, p := range r.pools {
		entries = append(entries, entry{id: id, p: p})
	}
	r.mu.RUnlock()

	for i := range entries {
		entries[i].created = entries[i].p.Snapshot().CreatedAt
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].created.Equal(entries[j].created) {
			return entries[i].created.Before(entries[j].created)
		}
		return entries[i].id < entries[j].id
	})
	out := make([]*Pool, len(entries))
	for i, e := range entries {
		out[i] = e.p
	}
	return out
}

// Restore registers an already persisted pool state.
func (r *Registry) Restore(st *State) (*Pool, error) {
	if err := verifyState(st); err != nil {
		return nil, fmt.Errorf("pool: restore %s: %w", st.ID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[st.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolExists, st.ID)
	}
	p := newPool(st.clone(), r.ledger, r.store, r.sink, r.log, r.custody)
	r.pools[st.ID] = p
	r.custody.add(st.Custody, st.ID)
	return p, nil
}

// Load restores every pool found in the store and returns how many were
// loaded.
func (r *Registry) Load() (int, error) {
	if r.store == nil {
		return 0, nil
	}
	states, err := r.store.LoadPools()
	if err != nil {
		return 0, fmt.Errorf("pool: load: %w", err)
	}
	for _, st := range states {
		if _, err := r.Restore(st); err != nil {
			return 0, err
		}
	}
	r.log.WithField("pools", len(states)).Debug("pools restored")
	return len(states), nil
}
