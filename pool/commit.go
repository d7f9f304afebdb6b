package pool

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/patronhq/poolengine/account"
	"github.com/patronhq/poolengine/event"
	"github.com/patronhq/poolengine/fixedpoint"
	"github.com/patronhq/poolengine/token"
)

// Commit records a commitment of amount to the tier at tierIndex on behalf
// of patron. The tokens move from patron to the pool custody account, the
// patron receives amount LP shares and a membership pass, and the status is
// re-evaluated.
//
// Commitments are accepted while the pool is ACTIVE or FUNDED and the end
// time has not passed. A capped pool stops at its cap.
func (p *Pool) Commit(tierIndex int, amount fixedpoint.Amount, patron account.Address, now time.Time) (Commitment, error) {
	var accepted Commitment
	err := p.run(now, func(tx *txn) error {
		balance, err := token.Balance(p.ledger, patron)
		if err != nil {
			return err
		}
		c, err := tx.commit(tierIndex, amount, patron, balance)
		accepted = c
		return err
	})
	if err != nil {
		return Commitment{}, err
	}
	p.log.WithFields(logrus.Fields{
		"account": patron.Hex(),
		"tier":    tierIndex,
		"amount":  amount.String(),
	}).Info("commitment accepted")
	return accepted, nil
}

func (tx *txn) commit(tierIndex int, amount fixedpoint.Amount, patron account.Address, balance fixedpoint.Amount) (Commitment, error) {
	st := tx.st
	if patron.IsZero() {
		return Commitment{}, ErrInvalidAccount
	}
	if tx.isCustody(patron) {
		return Commitment{}, fmt.Errorf("%w: patron %s is a pool custody account", ErrInvalidAccount, patron)
	}
	if amount == 0 {
		return Commitment{}, ErrZeroAmount
	}
	t, err := st.tier(tierIndex)
	if err != nil {
		return Commitment{}, err
	}
	if st.Status == StatusFullyFunded {
		return Commitment{}, fmt.Errorf("%w: pool reached its cap of %s", ErrCapExceeded, st.Cap)
	}
	if !st.Status.acceptsCommitments() {
		return Commitment{}, fmt.Errorf("%w: pool is %s", ErrInvalidTier, st.Status)
	}
	if tx.now.After(st.EndTime) {
		return Commitment{}, fmt.Errorf("%w: pool ended at %s", ErrInvalidTier, st.EndTime.Format(time.RFC3339))
	}
	if !t.Active {
		return Commitment{}, fmt.Errorf("%w: tier %d is inactive", ErrInvalidTier, tierIndex)
	}
	if err := t.accepts(amount); err != nil {
		return Commitment{}, err
	}
	if t.Full() {
		return Commitment{}, fmt.Errorf("%w: tier %d holds %d", ErrTierFull, tierIndex, t.Capacity)
	}
	total, err := st.TotalCommitted.Add(amount)
	if err != nil {
		return Commitment{}, err
	}
	if st.Capped() && total > st.Cap {
		return Commitment{}, fmt.Errorf("%w: %s + %s > %s", ErrCapExceeded, st.TotalCommitted, amount, st.Cap)
	}
	if balance < amount {
		return Commitment{}, fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, patron, balance, amount)
	}
	tierTotal, err := t.Committed.Add(amount)
	if err != nil {
		return Commitment{}, err
	}
	supply, err := st.TotalShares.Add(amount)
	if err != nil {
		return Commitment{}, err
	}

	h := st.holder(patron)
	if h == nil {
		// First shares: start at the current accumulator so revenue received
		// earlier is not claimable.
		h = &Holder{Snapshot: st.Accumulator}
		st.Holders[patron] = h
	} else if err := h.settle(st.Accumulator); err != nil {
		return Commitment{}, err
	}
	if h.Shares, err = h.Shares.Add(amount); err != nil {
		return Commitment{}, err
	}
	if h.Committed, err = h.Committed.Add(amount); err != nil {
		return Commitment{}, err
	}

	st.TotalCommitted = total
	st.TotalShares = supply
	t.Commitments++
	t.Committed = tierTotal
	st.NextPassID++

	c := Commitment{
		ID:     uint64(len(st.Commitments)) + 1,
		Tier:   tierIndex,
		Patron: patron,
		Amount: amount,
		Shares: amount,
		PassID: st.NextPassID,
		Time:   tx.now,
	}
	st.Commitments = append(st.Commitments, c)
	tx.transfer(patron, st.Custody, amount)

	if err := tx.emit(event.Event{
		Kind:   event.KindCommitAccepted,
		Actor:  patron,
		Amount: amount,
		Shares: amount,
		Tier:   int32(tierIndex),
		Ref:    c.ID,
	}); err != nil {
		return Commitment{}, err
	}
	if err := tx.emit(event.Event{
		Kind:  event.KindPassIssued,
		Actor: patron,
		Tier:  int32(tierIndex),
		Ref:   c.PassID,
	}); err != nil {
		return Commitment{}, err
	}
	return c, tx.checkStatus()
}
