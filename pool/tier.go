package pool

import (
	"fmt"
	"time"

	"github.com/patronhq/poolengine/account"
	"github.com/patronhq/poolengine/event"
	"github.com/patronhq/poolengine/fixedpoint"
)

// configurable reports whether tiers may be added or edited in s.
func (s Status) configurable() bool {
	return s == StatusInactive || s == StatusActive
}

func (tx *txn) addTier(requester account.Address, spec TierSpec) (Tier, error) {
	if err := spec.Validate(); err != nil {
		return Tier{}, err
	}
	if !tx.st.Status.configurable() {
		return Tier{}, fmt.Errorf("%w: status %s", ErrNotConfigurable, tx.st.Status)
	}
	t := Tier{TierSpec: spec, Index: len(tx.st.Tiers), Active: true}
	tx.st.Tiers = append(tx.st.Tiers, t)
	return t, tx.emit(event.Event{
		Kind:   event.KindTierAdded,
		Actor:  requester,
		Tier:   int32(t.Index),
		Amount: tierPrice(spec),
		Count:  spec.Capacity,
	})
}

// tierPrice is the headline price carried on tier events.
func tierPrice(spec TierSpec) fixedpoint.Amount {
	if spec.Pricing == PricingFixed {
		return spec.Price
	}
	return spec.MinPrice
}

// AddTier appends a tier and returns it. Only the owner may add tiers and
// only while the pool is INACTIVE or ACTIVE.
func (p *Pool) AddTier(requester account.Address, spec TierSpec, now time.Time) (Tier, error) {
	var added Tier
	err := p.run(now, func(tx *txn) error {
		if err := tx.requireOwner(requester); err != nil {
			return err
		}
		t, err := tx.addTier(requester, spec)
		added = t
		return err
	})
	return added, err
}

// SetTierActive toggles whether a tier accepts new commitments. Existing
// commitments are unaffected.
func (p *Pool) SetTierActive(requester account.Address, index int, active bool, now time.Time) error {
	return p.run(now, func(tx *txn) error {
		if err := tx.requireOwner(requester); err != nil {
			return err
		}
		t, err := tx.st.tier(index)
		if err != nil {
			return err
		}
		if t.Active == active {
			return nil
		}
		t.Active = active
		var flag uint32
		if active {
			flag = 1
		}
		return tx.emit(event.Event{
			Kind:  event.KindTierUpdated,
			Actor: requester,
			Tier:  int32(index),
			Count: flag,
		})
	})
}

// UpdateTier replaces the pricing and capacity of a tier that has no
// commitments yet. The active flag is kept.
func (p *Pool) UpdateTier(requester account.Address, index int, spec TierSpec, now time.Time) (Tier, error) {
	var updated Tier
	err := p.run(now, func(tx *txn) error {
		if err := tx.requireOwner(requester); err != nil {
			return err
		}
		if err := spec.Validate(); err != nil {
			return err
		}
		t, err := tx.st.tier(index)
		if err != nil {
			return err
		}
		if !tx.st.Status.configurable() {
			return fmt.Errorf("%w: status %s", ErrNotConfigurable, tx.st.Status)
		}
		if t.Commitments > 0 {
			return fmt.Errorf("%w: tier %d has %d", ErrTierLocked, index, t.Commitments)
		}
		t.TierSpec = spec
		updated = *t
		return tx.emit(event.Event{
			Kind:   event.KindTierUpdated,
			Actor:  requester,
			Tier:   int32(index),
			Amount: tierPrice(spec),
			Count:  spec.Capacity,
		})
	})
	return updated, err
}
