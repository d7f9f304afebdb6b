package pool

import "fmt"

// Status is the lifecycle state of a pool. The numeric values are part of
// the read model and must not be reordered.
type Status uint8

const (
	StatusInactive Status = iota
	StatusActive
	StatusPaused
	StatusClosed
	StatusFunded
	StatusFullyFunded
	StatusFailed
	StatusExecuting
	StatusCompleted
	StatusCancelled
)

var statusNames = [...]string{
	StatusInactive:    "INACTIVE",
	StatusActive:      "ACTIVE",
	StatusPaused:      "PAUSED",
	StatusClosed:      "CLOSED",
	StatusFunded:      "FUNDED",
	StatusFullyFunded: "FULLY_FUNDED",
	StatusFailed:      "FAILED",
	StatusExecuting:   "EXECUTING",
	StatusCompleted:   "COMPLETED",
	StatusCancelled:   "CANCELLED",
}

// transitions lists every allowed status change. Anything else is rejected.
var transitions = map[Status][]Status{
	StatusInactive:    {StatusActive, StatusCancelled},
	StatusActive:      {StatusFunded, StatusFullyFunded, StatusFailed, StatusPaused, StatusClosed, StatusCancelled},
	StatusPaused:      {StatusActive, StatusFunded, StatusFullyFunded, StatusCancelled},
	StatusClosed:      {StatusExecuting, StatusCancelled},
	StatusFunded:      {StatusFullyFunded, StatusExecuting, StatusPaused, StatusClosed, StatusCancelled},
	StatusFullyFunded: {StatusExecuting, StatusPaused, StatusClosed, StatusCancelled},
	StatusExecuting:   {StatusCompleted},
}

// String returns the upper-case name of s.
func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("STATUS(%d)", uint8(s))
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("pool: unknown status %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether s -> to is in the transition table.
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// acceptsCommitments reports whether commitments may be taken in s.
// FUNDED pools keep accepting commitments until the end time or the cap.
func (s Status) acceptsCommitments() bool {
	return s == StatusActive || s == StatusFunded
}

// funded reports whether s is at or past the funded milestone without
// having failed or been cancelled.
func (s Status) funded() bool {
	return s == StatusFunded || s == StatusFullyFunded || s == StatusExecuting
}

// autoTransitions reports whether CheckStatus may move a pool out of s.
func (s Status) autoTransitions() bool {
	return s == StatusActive || s == StatusFunded
}
