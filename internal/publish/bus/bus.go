// Package bus delivers reported events to in-process listeners.
//
// A Bus replaces a process-wide notification center: it is created by the
// application and injected into the reporter as its Publisher. Listeners
// subscribe and unsubscribe at any time; the reporter never knows about them.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/isseis/go-ezerr/ezerr"
)

// Listener receives events synchronously on the publishing goroutine.
type Listener func(ctx context.Context, ev ezerr.Event)

type subscription struct {
	id       uint64
	listener Listener
	ch       chan ezerr.Event
}

// Bus is an in-process fan-out of events. The zero value is not usable;
// call New.
type Bus struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	subs    []*subscription
	nextID  uint64
	dropped atomic.Uint64
}

// New creates a Bus. Listener panics are logged to logger, or slog.Default()
// when logger is nil.
func New(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Listener) (cancel func()) {
	return b.add(&subscription{listener: fn})
}

// SubscribeChan registers a buffered channel listener. Delivery never
// blocks: when the buffer is full the event is dropped for that listener.
// cancel unsubscribes and closes the channel.
func (b *Bus) SubscribeChan(buffer int) (<-chan ezerr.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	sub := &subscription{ch: make(chan ezerr.Event, buffer)}
	return sub.ch, b.add(sub)
}

func (b *Bus) add(sub *subscription) func() {
	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sub.id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id != id {
			continue
		}
		b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
		if sub.ch != nil {
			close(sub.ch)
		}
		return
	}
}

// Len returns the number of current subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many channel deliveries were dropped on full buffers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Publish delivers ev to every listener registered at the time of the call.
// It implements ezerr.Publisher.
func (b *Bus) Publish(ctx context.Context, ev ezerr.Event) {
	// Channel sends happen under the read lock so remove cannot close a
	// channel mid-send.
	b.mu.RLock()
	funcs := make([]Listener, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.ch == nil {
			funcs = append(funcs, sub.listener)
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
	b.mu.RUnlock()

	for _, fn := range funcs {
		b.deliver(ctx, fn, ev)
	}
}

func (b *Bus) deliver(ctx context.Context, fn Listener, ev ezerr.Event) {
	defer func() {
		if p := recover(); p != nil {
			b.log().Warn("Event listener panicked", "event_id", ev.ID, "panic", p)
		}
	}()
	fn(ctx, ev)
}

func (b *Bus) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}
