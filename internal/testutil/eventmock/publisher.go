package eventmock

import (
	"context"
	"sync"

	"approvalflow/internal/domain/event"
)

var _ event.Publisher = (*Publisher)(nil)

// Publisher records every published event. Safe for concurrent use.
type Publisher struct {
	mu     sync.Mutex
	events []event.Event
}

func New() *Publisher { return &Publisher{} }

func (p *Publisher) Publish(_ context.Context, e event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

// Events returns a copy of everything published so far.
func (p *Publisher) Events() []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Event, len(p.events))
	copy(out, p.events)
	return out
}

// Names returns the published event names in order.
func (p *Publisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name)
	}
	return out
}
