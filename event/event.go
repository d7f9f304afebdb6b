// Package event carries notifications about committed pool operations to
// the outside world.
package event

import (
	"fmt"
	"time"

	"github.com/patronhq/poolengine/account"
	"github.com/patronhq/poolengine/fixedpoint"
)

// Kind identifies what happened.
type Kind uint8

const (
	KindPoolCreated Kind = iota + 1
	KindTierAdded
	KindTierUpdated
	KindCommitAccepted
	KindPassIssued
	KindStatusChanged
	KindFundsWithdrawn
	KindFundsReturned
	KindRevenueReceived
	KindRevenueDistributed
	KindClaimed
	KindFeeConfigured
)

var kindNames = map[Kind]string{
	KindPoolCreated:        "pool_created",
	KindTierAdded:          "tier_added",
	KindTierUpdated:        "tier_updated",
	KindCommitAccepted:     "commit_accepted",
	KindPassIssued:         "pass_issued",
	KindStatusChanged:      "status_changed",
	KindFundsWithdrawn:     "funds_withdrawn",
	KindFundsReturned:      "funds_returned",
	KindRevenueReceived:    "revenue_received",
	KindRevenueDistributed: "revenue_distributed",
	KindClaimed:            "claimed",
	KindFeeConfigured:      "fee_configured",
}

// String returns the snake_case name of k.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("event: unknown kind %q", text)
}

// NoTier marks an event that does not concern a tier.
const NoTier = -1

// Event describes one committed change to a pool.
type Event struct {
	ID         string            `json:"id"`  // receipt id, see ReceiptID
	Seq        uint64            `json:"seq"` // per-pool sequence, starts at 1
	Kind       Kind              `json:"kind"`
	PoolID     string            `json:"pool_id"`
	Actor      account.Address   `json:"actor"`
	Amount     fixedpoint.Amount `json:"amount"`
	Fee        fixedpoint.Amount `json:"fee,omitempty"`
	Shares     fixedpoint.Amount `json:"shares,omitempty"`
	Tier       int32             `json:"tier"`
	Ref        uint64            `json:"ref,omitempty"` // commitment or pass id
	Count      uint32            `json:"count,omitempty"`
	PrevStatus string            `json:"prev_status,omitempty"`
	Status     string            `json:"status"`
	Time       time.Time         `json:"time"`
}

// Sink receives events after the operation that produced them committed.
// Emit must not block for long and cannot fail the operation.
type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// Multi fans events out to several sinks in order.
type Multi []Sink

// Emit forwards e to every sink.
func (m Multi) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})
