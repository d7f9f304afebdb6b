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

// ReceiveRevenue pulls amount from payer into custody, pays the platform
// fee and advances the revenue-per-share accumulator by the net amount.
// Revenue is accepted while the pool is EXECUTING.
func (p *Pool) ReceiveRevenue(amount fixedpoint.Amount, payer account.Address, now time.Time) error {
	var fee fixedpoint.Amount
	err := p.run(now, func(tx *txn) error {
		balance, err := token.Balance(p.ledger, payer)
		if err != nil {
			return err
		}
		f, err := tx.receiveRevenue(amount, payer, balance)
		fee = f
		return err
	})
	if err != nil {
		return err
	}
	p.log.WithFields(logrus.Fields{
		"account": payer.Hex(),
		"amount":  amount.String(),
		"fee":     fee.String(),
	}).Info("revenue received")
	return nil
}

func (tx *txn) receiveRevenue(amount fixedpoint.Amount, payer account.Address, balance fixedpoint.Amount) (fixedpoint.Amount, error) {
	st := tx.st
	if payer.IsZero() {
		return 0, ErrInvalidAccount
	}
	if tx.isCustody(payer) {
		return 0, fmt.Errorf("%w: payer %s is a pool custody account", ErrInvalidAccount, payer)
	}
	if st.Status != StatusExecuting {
		return 0, fmt.Errorf("%w: pool is %s", ErrRevenueNotAccepted, st.Status)
	}
	if amount == 0 {
		return 0, ErrZeroAmount
	}
	if st.TotalShares == 0 {
		return 0, ErrNoShares
	}
	if balance < amount {
		return 0, fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, payer, balance, amount)
	}

	var fee fixedpoint.Amount
	if !st.FeeRecipient.IsZero() {
		f, err := amount.Bps(st.FeeBps)
		if err != nil {
			return 0, err
		}
		fee = f
	}
	net, err := amount.Sub(fee)
	if err != nil {
		return 0, err
	}

	received, err := st.RevenueReceived.Add(amount)
	if err != nil {
		return 0, err
	}
	accumulated, err := st.RevenueAccumulated.Add(net)
	if err != nil {
		return 0, err
	}
	accrued, err := st.PlatformFeeAccrued.Add(fee)
	if err != nil {
		return 0, err
	}
	acc, rem, err := st.Accumulator.Advance(net, st.TotalShares, st.AccRemainder)
	if err != nil {
		return 0, err
	}

	st.RevenueReceived = received
	st.RevenueAccumulated = accumulated
	st.PlatformFeeAccrued = accrued
	st.Accumulator = acc
	st.AccRemainder = rem

	tx.transfer(payer, st.Custody, amount)
	tx.transfer(st.Custody, st.FeeRecipient, fee)
	return fee, tx.emit(event.Event{
		Kind:   event.KindRevenueReceived,
		Actor:  payer,
		Amount: amount,
		Fee:    fee,
		Shares: st.TotalShares,
		Tier:   event.NoTier,
	})
}

// payout settles everything owed to holder addr and queues the transfer.
func (tx *txn) payout(addr account.Address, h *Holder) (fixedpoint.Amount, error) {
	st := tx.st
	owed, err := h.pending(st.Accumulator)
	if err != nil {
		return 0, err
	}
	h.Snapshot = st.Accumulator
	if owed == 0 {
		return 0, nil
	}
	h.Unclaimed = 0
	if h.Claimed, err = h.Claimed.Add(owed); err != nil {
		return 0, err
	}
	if st.RevenueDistributed, err = st.RevenueDistributed.Add(owed); err != nil {
		return 0, err
	}
	if st.RevenueDistributed > st.RevenueAccumulated {
		return 0, fmt.Errorf("%w: distributed %s of %s", ErrConservationViolated, st.RevenueDistributed, st.RevenueAccumulated)
	}
	tx.transfer(st.Custody, addr, owed)
	return owed, nil
}

// DistributeRevenue pays every holder what they are owed. Either every
// holder is settled or, on error, none is.
func (p *Pool) DistributeRevenue(now time.Time) (fixedpoint.Amount, error) {
	var total fixedpoint.Amount
	err := p.run(now, func(tx *txn) error {
		var paid uint32
		for _, addr := range sortedHolders(tx.st) {
			owed, err := tx.payout(addr, tx.st.Holders[addr])
			if err != nil {
				return err
			}
			if owed == 0 {
				continue
			}
			if total, err = total.Add(owed); err != nil {
				return err
			}
			paid++
		}
		if total == 0 {
			return nil
		}
		return tx.emit(event.Event{
			Kind:   event.KindRevenueDistributed,
			Amount: total,
			Tier:   event.NoTier,
			Count:  paid,
		})
	})
	if err != nil {
		return 0, err
	}
	if total != 0 {
		p.log.WithField("amount", total.String()).Info("revenue distributed")
	}
	return total, nil
}

// ClaimDistribution pays patron's pending rewards and returns the amount.
// Claiming with nothing pending is a no-op that returns zero.
func (p *Pool) ClaimDistribution(patron account.Address, now time.Time) (fixedpoint.Amount, error) {
	var claimed fixedpoint.Amount
	err := p.run(now, func(tx *txn) error {
		h := tx.st.holder(patron)
		if h == nil {
			return nil
		}
		owed, err := tx.payout(patron, h)
		if err != nil || owed == 0 {
			return err
		}
		claimed = owed
		return tx.emit(event.Event{
			Kind:   event.KindClaimed,
			Actor:  patron,
			Amount: owed,
			Shares: h.Shares,
			Tier:   event.NoTier,
		})
	})
	if err != nil {
		return 0, err
	}
	return claimed, nil
}

// PendingRewards returns what patron could claim right now.
func (p *Pool) PendingRewards(patron account.Address) (fixedpoint.Amount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := p.state.holder(patron)
	if h == nil {
		return 0, nil
	}
	return h.pending(p.state.Accumulator)
}

// totalPending sums the pending rewards of all holders.
func totalPending(st *State) (fixedpoint.Amount, error) {
	var total fixedpoint.Amount
	for _, h := range st.Holders {
		owed, err := h.pending(st.Accumulator)
		if err != nil {
			return 0, err
		}
		if total, err = total.Add(owed); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Dust returns the net revenue held in custody that no holder can claim:
// the truncation residue of per-holder payouts. It stays in custody.
func (p *Pool) Dust() (fixedpoint.Amount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.state
	held, err := st.RevenueAccumulated.Sub(st.RevenueDistributed)
	if err != nil {
		return 0, err
	}
	pending, err := totalPending(st)
	if err != nil {
		return 0, err
	}
	dust, err := held.Sub(pending)
	if err != nil {
		return 0, fmt.Errorf("%w: pending %s exceeds held %s", ErrConservationViolated, pending, held)
	}
	return dust, nil
}

// SetFee configures the platform fee. Only the owner may set it, and only
// before the first revenue arrives. The event's actor is the recipient.
func (p *Pool) SetFee(requester, recipient account.Address, bps uint32, now time.Time) error {
	return p.run(now, func(tx *txn) error {
		if err := tx.requireOwner(requester); err != nil {
			return err
		}
		return tx.setFee(recipient, bps)
	})
}

func (tx *txn) setFee(recipient account.Address, bps uint32) error {
	if bps > fixedpoint.BpsBase {
		return fmt.Errorf("%w: %d", ErrInvalidFee, bps)
	}
	if tx.isCustody(recipient) {
		return fmt.Errorf("%w: fee recipient %s is a pool custody account", ErrInvalidAccount, recipient)
	}
	if tx.st.RevenueReceived != 0 {
		return ErrFeeLocked
	}
	tx.st.FeeRecipient = recipient
	tx.st.FeeBps = bps
	return tx.emit(event.Event{
		Kind:  event.KindFeeConfigured,
		Actor: recipient,
		Tier:  event.NoTier,
		Count: bps,
	})
}
