// Package events is the in-process notification bus shared by request
// handlers and live components.
package events

import (
	"sync"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/metrics"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
)

const TaskCreatedEvent = "task-created"

// Topic delivers payloads synchronously to the listeners registered at the
// moment of publishing, in registration order. Nothing is queued for listeners
// that subscribe later.
type Topic[T any] struct {
	name      string
	metrics   *metrics.Metrics
	mu        sync.Mutex
	nextID    uint64
	listeners []listener[T]
}

type listener[T any] struct {
	id uint64
	fn func(T)
}

func NewTopic[T any](name string, m *metrics.Metrics) *Topic[T] {
	return &Topic[T]{name: name, metrics: m}
}

func (topic *Topic[T]) Name() string {
	return topic.name
}

// Subscribe registers fn and returns the function that removes it. Calling the
// returned function more than once has no further effect.
func (topic *Topic[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	topic.mu.Lock()
	topic.nextID++
	id := topic.nextID
	topic.listeners = append(topic.listeners, listener[T]{id: id, fn: fn})
	topic.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { topic.remove(id) })
	}
}

func (topic *Topic[T]) remove(id uint64) {
	topic.mu.Lock()
	defer topic.mu.Unlock()
	for i, l := range topic.listeners {
		if l.id == id {
			topic.listeners = append(topic.listeners[:i:i], topic.listeners[i+1:]...)
			return
		}
	}
}

// Publish calls every current listener with payload. Listeners may subscribe
// or unsubscribe from within a callback; such changes apply to the next
// publish.
func (topic *Topic[T]) Publish(payload T) {
	topic.mu.Lock()
	snapshot := make([]listener[T], len(topic.listeners))
	copy(snapshot, topic.listeners)
	topic.mu.Unlock()

	topic.metrics.RecordPublication(topic.name)
	for _, l := range snapshot {
		l.fn(payload)
	}
}

func (topic *Topic[T]) ListenerCount() int {
	topic.mu.Lock()
	defer topic.mu.Unlock()
	return len(topic.listeners)
}

// Bus groups the application's topics. It is built once by the composition
// root and handed to producers and consumers.
type Bus struct {
	TaskCreated *Topic[models.Task]
}

func NewBus(m *metrics.Metrics) *Bus {
	return &Bus{
		TaskCreated: NewTopic[models.Task](TaskCreatedEvent, m),
	}
}
