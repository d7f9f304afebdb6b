package pool

import (
	"fmt"

	"github.com/patronhq/poolengine/fixedpoint"
	"github.com/patronhq/poolengine/token"
)

// Verify checks the pool's accounting invariants against its own records
// and the custody balance held by the ledger:
//
//   - refunds + withdrawals + distributions + fees never exceed
//     commitments + gross revenue, and custody holds at least the difference
//   - the sum of holder shares equals the share supply, which equals
//     committed minus refunded capital
//   - tier and commitment records add up to the committed total
//   - outstanding pending rewards never exceed undistributed revenue
func (p *Pool) Verify() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := verifyState(p.state); err != nil {
		return err
	}

	st := p.state
	inflow, err := fixedpoint.Sum(st.TotalCommitted, st.RevenueReceived)
	if err != nil {
		return err
	}
	outflow, err := fixedpoint.Sum(st.TotalRefunded, st.TotalWithdrawn, st.RevenueDistributed, st.PlatformFeeAccrued)
	if err != nil {
		return err
	}
	held, err := inflow.Sub(outflow)
	if err != nil {
		return fmt.Errorf("%w: paid out %s of %s", ErrConservationViolated, outflow, inflow)
	}
	bal, err := token.Balance(p.ledger, st.Custody)
	if err != nil {
		return err
	}
	if bal < held {
		return fmt.Errorf("%w: custody holds %s, owes %s", ErrConservationViolated, bal, held)
	}
	return nil
}

// verifyState checks the invariants that need no ledger.
func verifyState(st *State) error {
	var shares, committed, refunded fixedpoint.Amount
	var err error
	for addr, h := range st.Holders {
		if shares, err = shares.Add(h.Shares); err != nil {
			return err
		}
		if committed, err = committed.Add(h.Committed); err != nil {
			return err
		}
		if refunded, err = refunded.Add(h.Refunded); err != nil {
			return err
		}
		if h.Snapshot.Cmp(st.Accumulator) > 0 {
			return fmt.Errorf("%w: %s snapshot ahead of accumulator", ErrConservationViolated, addr)
		}
	}
	if shares != st.TotalShares {
		return fmt.Errorf("%w: holder shares %s, supply %s", ErrConservationViolated, shares, st.TotalShares)
	}
	if committed != st.TotalCommitted || refunded != st.TotalRefunded {
		return fmt.Errorf("%w: holders committed %s refunded %s, pool %s / %s",
			ErrConservationViolated, committed, refunded, st.TotalCommitted, st.TotalRefunded)
	}
	if outstanding := st.TotalCommitted.SubFloor(st.TotalRefunded); outstanding != st.TotalShares {
		return fmt.Errorf("%w: supply %s, outstanding capital %s", ErrConservationViolated, st.TotalShares, outstanding)
	}
	if st.Capped() && st.TotalCommitted > st.Cap {
		return fmt.Errorf("%w: committed %s over cap %s", ErrConservationViolated, st.TotalCommitted, st.Cap)
	}

	var tierTotal, recordTotal fixedpoint.Amount
	var tierCount uint64
	for _, t := range st.Tiers {
		if tierTotal, err = tierTotal.Add(t.Committed); err != nil {
			return err
		}
		tierCount += uint64(t.Commitments)
	}
	for _, c := range st.Commitments {
		if recordTotal, err = recordTotal.Add(c.Amount); err != nil {
			return err
		}
	}
	if tierTotal != st.TotalCommitted || recordTotal != st.TotalCommitted || tierCount != uint64(len(st.Commitments)) {
		return fmt.Errorf("%w: tiers %s, records %s, committed %s",
			ErrConservationViolated, tierTotal, recordTotal, st.TotalCommitted)
	}

	undistributed, err := st.RevenueAccumulated.Sub(st.RevenueDistributed)
	if err != nil {
		return fmt.Errorf("%w: distributed %s of %s", ErrConservationViolated, st.RevenueDistributed, st.RevenueAccumulated)
	}
	pending, err := totalPending(st)
	if err != nil {
		return err
	}
	if pending > undistributed {
		return fmt.Errorf("%w: pending %s exceeds undistributed %s", ErrConservationViolated, pending, undistributed)
	}
	return nil
}
