package pool

import (
	"fmt"
	"time"

	"github.com/patronhq/poolengine/account"
)

// ownerAction runs an owner-only status change.
func (p *Pool) ownerAction(requester account.Address, now time.Time, fn func(tx *txn) error) error {
	err := p.run(now, func(tx *txn) error {
		if err := tx.requireOwner(requester); err != nil {
			return err
		}
		return fn(tx)
	})
	if err == nil {
		p.log.WithField("account", requester.Hex()).Infof("pool is %s", p.Status())
	}
	return err
}

// Activate opens an INACTIVE pool for commitments. The pool needs at
// least one tier.
func (p *Pool) Activate(requester account.Address, now time.Time) error {
	return p.ownerAction(requester, now, func(tx *txn) error {
		if len(tx.st.Tiers) == 0 {
			return ErrNoTiers
		}
		if err := tx.setStatus(StatusActive, requester); err != nil {
			return err
		}
		return tx.checkStatus()
	})
}

// BeginExecution moves a funded pool to EXECUTING. A CLOSED pool may begin
// execution only if it reached its target before closing. There is no way
// back to FUNDED.
func (p *Pool) BeginExecution(requester account.Address, now time.Time) error {
	return p.ownerAction(requester, now, func(tx *txn) error {
		st := tx.st
		if st.Status == StatusActive || (st.Status == StatusClosed && st.TotalCommitted < st.Target) {
			return fmt.Errorf("%w: %s of %s committed", ErrTargetNotReached, st.TotalCommitted, st.Target)
		}
		return tx.setStatus(StatusExecuting, requester)
	})
}

// Complete marks an executing pool as finished. Claims and withdrawals of
// remaining capital stay possible; new revenue is refused.
func (p *Pool) Complete(requester account.Address, now time.Time) error {
	return p.ownerAction(requester, now, func(tx *txn) error {
		return tx.setStatus(StatusCompleted, requester)
	})
}

// Pause suspends commitments on an ACTIVE, FUNDED or FULLY_FUNDED pool.
func (p *Pool) Pause(requester account.Address, now time.Time) error {
	return p.ownerAction(requester, now, func(tx *txn) error {
		from := tx.st.Status
		if err := tx.setStatus(StatusPaused, requester); err != nil {
			return err
		}
		tx.st.PausedFrom = from
		return nil
	})
}

// Resume returns a paused pool to the status it was paused from and then
// re-evaluates it, so a pool whose end time passed while paused fails.
func (p *Pool) Resume(requester account.Address, now time.Time) error {
	return p.ownerAction(requester, now, func(tx *txn) error {
		if tx.st.Status != StatusPaused {
			return fmt.Errorf("%w: pool is %s", ErrInvalidTransition, tx.st.Status)
		}
		if err := tx.setStatus(tx.st.PausedFrom, requester); err != nil {
			return err
		}
		return tx.checkStatus()
	})
}

// Close stops commitments for good. A closed pool either begins execution
// (target met) or is cancelled.
func (p *Pool) Close(requester account.Address, now time.Time) error {
	return p.ownerAction(requester, now, func(tx *txn) error {
		return tx.setStatus(StatusClosed, requester)
	})
}

// Cancel ends the pool and opens refunds. It is refused once any capital
// was withdrawn.
func (p *Pool) Cancel(requester account.Address, now time.Time) error {
	return p.ownerAction(requester, now, func(tx *txn) error {
		if tx.st.TotalWithdrawn != 0 {
			return fmt.Errorf("%w: %s", ErrCapitalWithdrawn, tx.st.TotalWithdrawn)
		}
		return tx.setStatus(StatusCancelled, requester)
	})
}
