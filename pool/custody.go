package pool

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/patronhq/poolengine/account"
	"github.com/patronhq/poolengine/event"
	"github.com/patronhq/poolengine/fixedpoint"
)

// withdrawable reports whether the owner may draw capital in s.
func (s Status) withdrawable() bool {
	return s.funded() || s == StatusCompleted
}

// refundable reports whether patrons may reclaim their commitments in s.
func (s Status) refundable() bool {
	return s == StatusFailed || s == StatusCancelled
}

// WithdrawFunds transfers committed capital from custody to the owner and
// returns the amount moved. An amount of zero withdraws everything still
// available. Revenue held for distribution is never touched.
func (p *Pool) WithdrawFunds(amount fixedpoint.Amount, requester account.Address, now time.Time) (fixedpoint.Amount, error) {
	var withdrawn fixedpoint.Amount
	err := p.run(now, func(tx *txn) error {
		st := tx.st
		if err := tx.requireOwner(requester); err != nil {
			return err
		}
		if !st.Status.withdrawable() {
			return fmt.Errorf("%w: pool is %s", ErrTargetNotReached, st.Status)
		}
		available := st.Available()
		switch {
		case amount == 0 && available == 0:
			return ErrNothingToWithdraw
		case amount == 0:
			amount = available
		case amount > available:
			return fmt.Errorf("%w: %s requested, %s available", ErrExceedsAvailable, amount, available)
		}

		total, err := st.TotalWithdrawn.Add(amount)
		if err != nil {
			return err
		}
		st.TotalWithdrawn = total
		withdrawn = amount
		tx.transfer(st.Custody, st.Owner, amount)
		return tx.emit(event.Event{
			Kind:   event.KindFundsWithdrawn,
			Actor:  requester,
			Amount: amount,
			Tier:   event.NoTier,
		})
	})
	if err != nil {
		return 0, err
	}
	p.log.WithFields(logrus.Fields{
		"account": requester.Hex(),
		"amount":  withdrawn.String(),
	}).Info("capital withdrawn")
	return withdrawn, nil
}

// ClaimRefund returns every unrefunded commitment of patron in a FAILED or
// CANCELLED pool and burns the matching LP shares. A second claim fails
// with ErrNothingToRefund.
func (p *Pool) ClaimRefund(patron account.Address, now time.Time) (fixedpoint.Amount, error) {
	var refunded fixedpoint.Amount
	err := p.run(now, func(tx *txn) error {
		amt, err := tx.refund(patron)
		refunded = amt
		return err
	})
	if err != nil {
		return 0, err
	}
	p.log.WithFields(logrus.Fields{
		"account": patron.Hex(),
		"amount":  refunded.String(),
	}).Info("refund paid")
	return refunded, nil
}

func (tx *txn) refund(patron account.Address) (fixedpoint.Amount, error) {
	st := tx.st
	if !st.Status.refundable() {
		return 0, fmt.Errorf("%w: pool is %s", ErrPoolNotFailed, st.Status)
	}
	h := st.holder(patron)
	if h == nil {
		return 0, fmt.Errorf("%w: %s never committed", ErrNothingToRefund, patron)
	}

	var total fixedpoint.Amount
	var count uint32
	for i := range st.Commitments {
		c := &st.Commitments[i]
		if c.Patron != patron || c.Refunded {
			continue
		}
		next, err := total.Add(c.Amount)
		if err != nil {
			return 0, err
		}
		total = next
		count++
		c.Refunded = true
	}
	if total == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNothingToRefund, patron)
	}
	if total > st.Available() {
		return 0, fmt.Errorf("%w: refund %s exceeds held capital", ErrConservationViolated, total)
	}

	if err := h.settle(st.Accumulator); err != nil {
		return 0, err
	}
	var err error
	if h.Shares, err = h.Shares.Sub(total); err != nil {
		return 0, err
	}
	if h.Refunded, err = h.Refunded.Add(total); err != nil {
		return 0, err
	}
	if st.TotalShares, err = st.TotalShares.Sub(total); err != nil {
		return 0, err
	}
	if st.TotalRefunded, err = st.TotalRefunded.Add(total); err != nil {
		return 0, err
	}

	tx.transfer(st.Custody, patron, total)
	return total, tx.emit(event.Event{
		Kind:   event.KindFundsReturned,
		Actor:  patron,
		Amount: total,
		Shares: total,
		Tier:   event.NoTier,
		Count:  count,
	})
}
