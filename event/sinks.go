package event

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Emit appends e.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfKind returns the recorded events of kind k.
func (r *Recorder) OfKind(k Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// LogSink writes one structured log line per event.
type LogSink struct {
	log logrus.FieldLogger
}

// NewLogSink creates a sink logging to log.
func NewLogSink(log logrus.FieldLogger) *LogSink { return &LogSink{log: log} }

// Emit logs e at info level.
func (s *LogSink) Emit(e Event) {
	fields := logrus.Fields{
		"event":   e.Kind.String(),
		"seq":     e.Seq,
		"pool_id": e.PoolID,
		"actor":   e.Actor.Hex(),
		"status":  e.Status,
		"receipt": e.ID,
	}
	if e.Amount != 0 {
		fields["amount"] = e.Amount.String()
	}
	if e.Fee != 0 {
		fields["fee"] = e.Fee.String()
	}
	if e.Shares != 0 {
		fields["shares"] = e.Shares.String()
	}
	if e.Tier != NoTier {
		fields["tier"] = e.Tier
	}
	if e.PrevStatus != "" {
		fields["prev_status"] = e.PrevStatus
	}
	s.log.WithFields(fields).Info("pool event")
}
