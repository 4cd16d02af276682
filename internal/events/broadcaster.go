package events

import (
	"sync"
	"sync/atomic"
)

// subscriberBuffer is how many events a subscriber may lag behind before
// events are dropped for it.
const subscriberBuffer = 64

// Subscriber receives every emitted event until it is unsubscribed.
type Subscriber chan Event

// hub fans events out to live subscribers (websocket clients).
type hub struct {
	mu      sync.RWMutex
	subs    map[Subscriber]struct{}
	dropped atomic.Int64
}

var fanout = &hub{subs: map[Subscriber]struct{}{}}

func (h *hub) add() Subscriber {
	sub := make(Subscriber, subscriberBuffer)
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// remove closes sub if it is still registered.
func (h *hub) remove(sub Subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub)
	}
	h.mu.Unlock()
}

func (h *hub) removeAll() {
	h.mu.Lock()
	for sub := range h.subs {
		close(sub)
	}
	h.subs = map[Subscriber]struct{}{}
	h.mu.Unlock()
}

// send never blocks; a full subscriber misses the event.
func (h *hub) send(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub <- e:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Subscribe registers a new subscriber.
func Subscribe() Subscriber { return fanout.add() }

// Unsubscribe removes sub and closes its channel. Calling it twice is a no-op.
func Unsubscribe(sub Subscriber) { fanout.remove(sub) }

// CloseAllSubscribers closes every subscriber channel, ending their streams.
func CloseAllSubscribers() { fanout.removeAll() }

// SubscriberCount returns the number of live subscribers.
func SubscriberCount() int { return fanout.count() }

// DroppedCount returns how many deliveries were skipped because a
// subscriber was full.
func DroppedCount() int64 { return fanout.dropped.Load() }

// RecentEvents returns up to the last n buffered events, oldest first.
// n <= 0 returns all of them.
func RecentEvents(n int) []Event {
	held := buffer.Snapshot()
	if n > 0 && n < len(held) {
		held = held[len(held)-n:]
	}
	return held
}
