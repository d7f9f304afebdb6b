package pool

import (
	"fmt"
	"math/big"
	"time"

	"github.com/patronhq/poolengine/account"
	"github.com/patronhq/poolengine/fixedpoint"
)

// Pricing is how a tier prices a commitment.
type Pricing uint8

const (
	// PricingFixed requires the amount to equal Price.
	PricingFixed Pricing = iota
	// PricingRange requires MinPrice <= amount <= MaxPrice.
	PricingRange
	// PricingUnbounded requires amount >= MinPrice with no upper bound.
	PricingUnbounded
)

// String returns the lower-case name of p.
func (p Pricing) String() string {
	switch p {
	case PricingFixed:
		return "fixed"
	case PricingRange:
		return "range"
	case PricingUnbounded:
		return "unbounded"
	default:
		return fmt.Sprintf("pricing(%d)", uint8(p))
	}
}

// ParsePricing is the inverse of Pricing.String.
func ParsePricing(s string) (Pricing, error) {
	for _, p := range []Pricing{PricingFixed, PricingRange, PricingUnbounded} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown pricing %q", ErrInvalidTierSpec, s)
}

// TierSpec is the configurable part of a tier.
type TierSpec struct {
	Name     string
	Pricing  Pricing
	Price    fixedpoint.Amount // fixed pricing only
	MinPrice fixedpoint.Amount
	MaxPrice fixedpoint.Amount // range pricing only
	Capacity uint32            // max commitments, 0 = unbounded
}

// Validate checks that the pricing fields are consistent with the mode.
func (s TierSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTierSpec)
	}
	switch s.Pricing {
	case PricingFixed:
		if s.Price == 0 {
			return fmt.Errorf("%w: fixed tier %q needs a price", ErrInvalidTierSpec, s.Name)
		}
	case PricingRange:
		if s.MaxPrice == 0 || s.MinPrice > s.MaxPrice {
			return fmt.Errorf("%w: tier %q range [%s, %s]", ErrInvalidTierSpec, s.Name, s.MinPrice, s.MaxPrice)
		}
	case PricingUnbounded:
		if s.MaxPrice != 0 {
			return fmt.Errorf("%w: unbounded tier %q has a max price", ErrInvalidTierSpec, s.Name)
		}
	default:
		return fmt.Errorf("%w: pricing %s", ErrInvalidTierSpec, s.Pricing)
	}
	return nil
}

// accepts checks amount against the tier's pricing.
func (s TierSpec) accepts(amount fixedpoint.Amount) error {
	switch s.Pricing {
	case PricingFixed:
		if amount != s.Price {
			return fmt.Errorf("%w: tier %q wants %s, got %s", ErrPriceMismatch, s.Name, s.Price, amount)
		}
	case PricingRange:
		if amount < s.MinPrice || amount > s.MaxPrice {
			return fmt.Errorf("%w: %s not in [%s, %s]", ErrOutOfRange, amount, s.MinPrice, s.MaxPrice)
		}
	case PricingUnbounded:
		if amount < s.MinPrice {
			return fmt.Errorf("%w: %s below minimum %s", ErrOutOfRange, amount, s.MinPrice)
		}
	}
	return nil
}

// Tier is a funding option within a pool. Index is stable for the
// lifetime of the pool.
type Tier struct {
	TierSpec
	Index       int
	Active      bool
	Commitments uint32
	Committed   fixedpoint.Amount
}

// Full reports whether the tier reached its capacity.
func (t Tier) Full() bool {
	return t.Capacity != 0 && t.Commitments >= t.Capacity
}

// Commitment records one accepted commit.
type Commitment struct {
	ID       uint64
	Tier     int
	Patron   account.Address
	Amount   fixedpoint.Amount
	Shares   fixedpoint.Amount
	PassID   uint64
	Time     time.Time
	Refunded bool
}

// Holder is a patron's position in the LP share ledger.
type Holder struct {
	Shares    fixedpoint.Amount
	Snapshot  fixedpoint.Accumulator // accumulator value at last settlement
	Unclaimed fixedpoint.Amount      // rewards banked before a share change
	Committed fixedpoint.Amount
	Refunded  fixedpoint.Amount
	Claimed   fixedpoint.Amount
}

// pending returns the rewards owed to h at accumulator acc.
func (h *Holder) pending(acc fixedpoint.Accumulator) (fixedpoint.Amount, error) {
	owed, err := acc.Owed(h.Snapshot, h.Shares)
	if err != nil {
		return 0, err
	}
	return owed.Add(h.Unclaimed)
}

// settle banks everything owed so far and moves the snapshot to acc.
// It must run before any change to h.Shares.
func (h *Holder) settle(acc fixedpoint.Accumulator) error {
	owed, err := h.pending(acc)
	if err != nil {
		return err
	}
	h.Unclaimed = owed
	h.Snapshot = acc
	return nil
}

// State is the complete accounting state of one pool. It is what the
// store persists and what Snapshot hands out; callers get copies only.
type State struct {
	ID      string
	Name    string
	Owner   account.Address
	Custody account.Address

	Target    fixedpoint.Amount
	Cap       fixedpoint.Amount // 0 = uncapped
	CreatedAt time.Time
	EndTime   time.Time

	Status            Status
	PausedFrom        Status
	TargetReachedTime time.Time

	TotalCommitted     fixedpoint.Amount
	TotalWithdrawn     fixedpoint.Amount
	TotalRefunded      fixedpoint.Amount
	RevenueReceived    fixedpoint.Amount // gross
	RevenueAccumulated fixedpoint.Amount // net of fees
	RevenueDistributed fixedpoint.Amount
	PlatformFeeAccrued fixedpoint.Amount

	FeeRecipient account.Address
	FeeBps       uint32

	TotalShares  fixedpoint.Amount
	Accumulator  fixedpoint.Accumulator
	AccRemainder *big.Int

	Tiers       []Tier
	Commitments []Commitment
	Holders     map[account.Address]*Holder

	NextPassID uint64
	EventSeq   uint64
}

// Available returns the committed capital the owner may still withdraw.
func (s *State) Available() fixedpoint.Amount {
	return s.TotalCommitted.SubFloor(s.TotalWithdrawn).SubFloor(s.TotalRefunded)
}

// Capped reports whether the pool has a cap.
func (s *State) Capped() bool { return s.Cap != 0 }

func (s *State) holder(addr account.Address) *Holder {
	return s.Holders[addr]
}

func (s *State) tier(index int) (*Tier, error) {
	if index < 0 || index >= len(s.Tiers) {
		return nil, fmt.Errorf("%w: %d of %d", ErrTierNotFound, index, len(s.Tiers))
	}
	return &s.Tiers[index], nil
}

// clone returns a deep copy of s.
func (s *State) clone() *State {
	c := *s
	c.Tiers = append([]Tier(nil), s.Tiers...)
	c.Commitments = append([]Commitment(nil), s.Commitments...)
	c.Holders = make(map[account.Address]*Holder, len(s.Holders))
	for addr, h := range s.Holders {
		hc := *h
		c.Holders[addr] = &hc
	}
	if s.AccRemainder != nil {
		c.AccRemainder = new(big.Int).Set(s.AccRemainder)
	}
	return &c
}
