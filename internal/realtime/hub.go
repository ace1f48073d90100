// Package realtime fans out table change notifications to subscribers.
//
// A notification only says that something changed in a table; subscribers are
// expected to reload rather than patch. Delivery never blocks the publisher:
// when a subscriber's buffer is full the notification is dropped, since the
// pending one already tells the subscriber to reload.
package realtime

import (
	"sync"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/metrics"
	"github.com/rs/zerolog"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

const subscriptionBuffer = 16

type Change struct {
	Table      string     `json:"table"`
	Type       ChangeType `json:"type"`
	RecordID   string     `json:"recordId,omitempty"`
	OwnerID    string     `json:"-"`
	OccurredAt time.Time  `json:"occurredAt"`
}

type Hub struct {
	mu            sync.Mutex
	subscriptions map[uint64]*Subscription
	nextID        uint64
	closed        bool

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewHub(logger zerolog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		subscriptions: make(map[uint64]*Subscription),
		logger:        logger.With().Str("component", "realtime").Logger(),
		metrics:       m,
	}
}

// Subscription receives changes for one table. An empty ownerID receives the
// changes of every owner.
type Subscription struct {
	C <-chan Change

	channel chan Change
	table   string
	ownerID string
	id      uint64
	hub     *Hub
	once    sync.Once
}

func (hub *Hub) Subscribe(table string, ownerID string) *Subscription {
	channel := make(chan Change, subscriptionBuffer)
	subscription := &Subscription{
		C:       channel,
		channel: channel,
		table:   table,
		ownerID: ownerID,
		hub:     hub,
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()

	if hub.closed {
		close(channel)
		subscription.once.Do(func() {})
		return subscription
	}

	hub.nextID++
	subscription.id = hub.nextID
	hub.subscriptions[subscription.id] = subscription
	hub.metrics.SubscriptionOpened()
	hub.logger.Debug().Str("table", table).Uint64("subscription", subscription.id).Msg("subscribed")
	return subscription
}

// Close releases the subscription and closes C. It is safe to call more than once.
func (subscription *Subscription) Close() {
	subscription.once.Do(func() {
		hub := subscription.hub
		hub.mu.Lock()
		defer hub.mu.Unlock()
		if _, ok := hub.subscriptions[subscription.id]; !ok {
			return
		}
		delete(hub.subscriptions, subscription.id)
		close(subscription.channel)
		hub.metrics.SubscriptionClosed()
		hub.logger.Debug().Str("table", subscription.table).Uint64("subscription", subscription.id).Msg("unsubscribed")
	})
}

func (subscription *Subscription) Table() string {
	return subscription.table
}

func (subscription *Subscription) matches(change Change) bool {
	if subscription.table != change.Table {
		return false
	}
	return subscription.ownerID == "" || subscription.ownerID == change.OwnerID
}

func (hub *Hub) Publish(change Change) {
	if change.OccurredAt.IsZero() {
		change.OccurredAt = time.Now().UTC()
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()

	for _, subscription := range hub.subscriptions {
		if !subscription.matches(change) {
			continue
		}
		select {
		case subscription.channel <- change:
		default:
			hub.logger.Debug().Str("table", change.Table).Uint64("subscription", subscription.id).Msg("subscriber buffer full, change coalesced")
		}
	}
}

func (hub *Hub) SubscriberCount() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.subscriptions)
}

// Close closes every open subscription; later subscriptions are born closed.
func (hub *Hub) Close() {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	hub.closed = true
	for id, subscription := range hub.subscriptions {
		delete(hub.subscriptions, id)
		close(subscription.channel)
		hub.metrics.SubscriptionClosed()
	}
}
