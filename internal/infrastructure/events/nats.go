package events

import (
	"context"
	"encoding/json"

	"approvalflow/internal/domain/event"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSPublisher publishes workflow lifecycle events as JSON on the event
// name as subject (workflow.started, workflow.step.approved, ...).
//
// All publishes are non-fatal. A transition is committed before its event
// goes out, so a broken broker must never make the transition look failed:
// errors are logged at warn and dropped.
type NATSPublisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

func NewNATSPublisher(conn *nats.Conn, log zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, log: log}
}

var _ event.Publisher = (*NATSPublisher)(nil)

func (p *NATSPublisher) Publish(_ context.Context, e event.Event) {
	if p.conn == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		p.log.Warn().Err(err).Str("event", e.Name).Msg("events: marshal failed")
		return
	}
	if err := p.conn.Publish(e.Name, data); err != nil {
		p.log.Warn().Err(err).
			Str("event", e.Name).
			Str("instance_id", e.InstanceID).
			Msg("events: publish failed (non-fatal)")
		return
	}
	p.log.Debug().
		Str("event", e.Name).
		Str("instance_id", e.InstanceID).
		Msg("events: published")
}

// Connect dials NATS. An empty URL yields a nil connection and a publisher
// that silently drops events, which keeps local setups broker-optional.
func Connect(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}
	return nats.Connect(url, nats.Name("approvalflow"))
}
