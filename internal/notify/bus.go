/**
 * @description
 * This package implements the in-process publish/subscribe bus that carries
 * transaction change notifications to interested observers (HTTP push
 * layers, projections, logging hooks). Local mutations from the lifecycle
 * manager and remote changes replayed from the broker feed both publish
 * through this one bus, so subscribers never care where a change came from.
 *
 * @notes
 * - Delivery is synchronous and in subscription order within a channel.
 * - A panicking handler is recovered and logged; delivery continues to the
 *   remaining handlers on the channel.
 */

package notify

import (
	"log"
	"sync"

	"github.com/goldenelnobles/transaction-service/internal/domain"
)

// Channel names a notification stream.
type Channel string

const (
	ChannelCreated      Channel = "created"
	ChannelUpdated      Channel = "updated"
	ChannelValidated    Channel = "validated"
	ChannelCompleted    Channel = "completed"
	ChannelCancelled    Channel = "cancelled"
	ChannelDeleted      Channel = "deleted"
	ChannelStatsUpdated Channel = "stats:updated"
)

// Event is the payload delivered to handlers. Transaction is nil on
// stats:updated events; on deleted events it carries at least the row's ID
// and code so subscribers can drop the right row. Stats is nil on events
// replayed from the remote change feed.
type Event struct {
	Channel     Channel
	Transaction *domain.Transaction
	Stats       *domain.Stats
}

// Handler consumes one event.
type Handler func(Event)

type entry struct {
	id      uint64
	handler Handler
}

// Bus is a typed in-process publish/subscribe mechanism.
type Bus struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[Channel][]entry
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Channel][]entry)}
}

// Subscription is the handle returned by Subscribe; call Unsubscribe to stop
// receiving events.
type Subscription struct {
	bus     *Bus
	channel Channel
	id      uint64
}

// Unsubscribe removes the handler from its channel. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	entries := s.bus.handlers[s.channel]
	for i := range entries {
		if entries[i].id == s.id {
			s.bus.handlers[s.channel] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	s.bus = nil
}

// Subscribe registers a handler on a channel and returns its subscription
// handle. Handlers on the same channel are invoked in subscription order.
func (b *Bus) Subscribe(channel Channel, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[channel] = append(b.handlers[channel], entry{id: b.nextID, handler: handler})
	return &Subscription{bus: b, channel: channel, id: b.nextID}
}

// Publish delivers the event synchronously to every handler subscribed to
// its channel. A handler that panics does not prevent delivery to the
// handlers behind it.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	entries := make([]entry, len(b.handlers[event.Channel]))
	copy(entries, b.handlers[event.Channel])
	b.mu.Unlock()

	for _, e := range entries {
		deliver(e.handler, event)
	}
}

func deliver(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("level=error component=notify msg=\"handler panicked; continuing delivery\" channel=%s err=%v", event.Channel, r)
		}
	}()
	h(event)
}
