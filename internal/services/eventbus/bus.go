// Package eventbus is an in-process publish/subscribe channel between the
// match coordinator and the components that react to its events.
package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mcoot/tictactoe-go/internal/model"
)

// Handler reacts to a published event. Returned errors and panics are logged
// and never reach the publisher.
type Handler func(ctx context.Context, event model.Event) error

// Publisher is the write side of the bus
type Publisher interface {
	Publish(event model.Event)
}

// Bus delivers each published event at most once to every subscriber of its
// topic. Every subscription has its own FIFO queue and goroutine, so a slow
// handler delays only itself and Publish never blocks on handlers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[model.EventType]map[uint64]*subscription
	nextID uint64
	closed bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// Ensure Bus implements Publisher
var _ Publisher = (*Bus)(nil)

// New creates a new Bus
func New(logger *slog.Logger) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		subs:   make(map[model.EventType]map[uint64]*subscription),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Subscribe registers handler for topic. The name is used in log messages.
// The returned function removes the subscription; events still queued for it are discarded.
func (b *Bus) Subscribe(topic model.EventType, name string, handler Handler) (unsubscribe func()) {
	return b.SubscribeMany([]model.EventType{topic}, name, handler)
}

// SubscribeMany registers one handler for several topics. Events of all the
// topics share a single queue, so the handler sees them in publish order.
func (b *Bus) SubscribeMany(topics []model.EventType, name string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	topics = slices.Clone(topics)
	b.nextID++
	sub := newSubscription(b.nextID, name, handler)
	for _, topic := range topics {
		if b.subs[topic] == nil {
			b.subs[topic] = make(map[uint64]*subscription)
		}
		b.subs[topic][sub.id] = sub
	}

	b.wg.Add(1)
	go b.run(sub)

	return func() {
		b.mu.Lock()
		for _, topic := range topics {
			delete(b.subs[topic], sub.id)
		}
		b.mu.Unlock()
		sub.stop(true)
	}
}

// Publish queues event for every current subscriber of event.Type
func (b *Bus) Publish(event model.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("event published after bus closed", slog.String("type", string(event.Type)))
		return
	}
	for _, sub := range b.subs[event.Type] {
		sub.enqueue(event)
	}
}

// SubscriberCount returns the number of subscriptions for topic
func (b *Bus) SubscriberCount(topic model.EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Close stops accepting events, lets every subscriber drain its queue and
// waits for all handlers to return.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make(map[uint64]*subscription)
	for _, byID := range b.subs {
		for id, sub := range byID {
			subs[id] = sub
		}
	}
	b.subs = make(map[model.EventType]map[uint64]*subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.stop(false)
	}
	b.wg.Wait()
	b.cancel()
}

func (b *Bus) run(sub *subscription) {
	defer b.wg.Done()
	for {
		event, ok := sub.next()
		if !ok {
			return
		}
		b.dispatch(sub, event)
	}
}

func (b *Bus) dispatch(sub *subscription, event model.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				slog.String("subscriber", sub.name),
				slog.String("type", string(event.Type)),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	if err := sub.handler(b.ctx, event); err != nil {
		b.logger.Error("event handler failed",
			slog.String("subscriber", sub.name),
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()),
		)
	}
}

type subscription struct {
	id      uint64
	name    string
	handler Handler

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []model.Event
	stopped   bool // no more events will be queued
	discarded bool // queued events must be dropped
}

func newSubscription(id uint64, name string, handler Handler) *subscription {
	sub := &subscription{
		id:      id,
		name:    name,
		handler: handler,
	}
	sub.cond = sync.NewCond(&sub.mu)
	return sub
}

func (s *subscription) enqueue(event model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.queue = append(s.queue, event)
	s.cond.Signal()
}

// next blocks until an event is available or the subscription has finished
func (s *subscription) next() (model.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.stopped {
		s.cond.Wait()
	}
	if s.discarded || len(s.queue) == 0 {
		s.queue = nil
		return model.Event{}, false
	}
	event := s.queue[0]
	s.queue[0] = model.Event{}
	s.queue = s.queue[1:]
	return event, true
}

func (s *subscription) stop(discard bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.discarded = s.discarded || discard
	s.cond.Broadcast()
}
