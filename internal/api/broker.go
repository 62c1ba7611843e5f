package api

import (
	"sync"

	"github.com/MyTurnyet/switch-this-sub002/internal/switchlist"
)

// EventBroker fans switchlist events out to subscribers keyed by switchlist
// id. It satisfies switchlist.Publisher.
type EventBroker interface {
	Subscribe(switchlistID string) chan switchlist.Event
	Unsubscribe(switchlistID string, ch chan switchlist.Event)
	Publish(switchlistID string, evt switchlist.Event)
	Close() error
}

// Broker is the in-process EventBroker.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan switchlist.Event]struct{} // switchlist id -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan switchlist.Event]struct{}{}}
}

func (b *Broker) Subscribe(switchlistID string) chan switchlist.Event {
	ch := make(chan switchlist.Event, 8)
	b.mu.Lock()
	if b.subs[switchlistID] == nil {
		b.subs[switchlistID] = map[chan switchlist.Event]struct{}{}
	}
	b.subs[switchlistID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe closes ch. Unknown channels are ignored so a second call is
// harmless.
func (b *Broker) Unsubscribe(switchlistID string, ch chan switchlist.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[switchlistID]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, switchlistID)
	}
	close(ch)
}

// Publish never blocks; slow subscribers miss events.
func (b *Broker) Publish(switchlistID string, evt switchlist.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[switchlistID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, m := range b.subs {
		for ch := range m {
			close(ch)
		}
		delete(b.subs, id)
	}
	return nil
}
