package event

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// MsgPublisher is the subset of *nats.Conn used by NATSSink.
type MsgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSSink publishes each event as JSON on "<prefix>.<kind>". The receipt
// id travels in the Nats-Msg-Id header so JetStream can drop duplicates.
type NATSSink struct {
	pub    MsgPublisher
	prefix string
	log    logrus.FieldLogger
}

// NewNATSSink creates a sink publishing through pub.
func NewNATSSink(pub MsgPublisher, prefix string, log logrus.FieldLogger) *NATSSink {
	return &NATSSink{pub: pub, prefix: prefix, log: log}
}

// ConnectNATS dials url and returns a sink plus the connection, which the
// caller must drain or close.
func ConnectNATS(url, prefix string, log logrus.FieldLogger) (*NATSSink, *nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("poolengine"))
	if err != nil {
		return nil, nil, fmt.Errorf("event: connect nats %s: %w", url, err)
	}
	return NewNATSSink(nc, prefix, log), nc, nil
}

// Subject returns the subject e is published on.
func (s *NATSSink) Subject(e Event) string {
	return s.prefix + "." + e.Kind.String()
}

// Emit publishes e. Failures are logged; the operation has already committed.
func (s *NATSSink) Emit(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		s.log.WithError(err).WithField("event", e.Kind.String()).Error("encode event")
		return
	}
	msg := nats.NewMsg(s.Subject(e))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, e.ID)
	if err := s.pub.PublishMsg(msg); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event":   e.Kind.String(),
			"pool_id": e.PoolID,
			"seq":     e.Seq,
		}).Warn("publish event")
	}
}
