package bus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/juicebox/backoffice/domain"
)

// Broadcast is the wildcard recipient: events addressed to it reach every
// subscriber.
const Broadcast = "*"

// Kind enumerates the event types pushed to live subscribers.
type Kind string

const (
	KindNotification    Kind = "notification"
	KindPaymentReceived Kind = "payment_received"
	KindStatusChanged   Kind = "status_changed"
	KindActivity        Kind = "activity"
	KindHandoffUpdate   Kind = "handoff_update"
)

// Event is one message on the bus, addressed to a single user or to Broadcast.
type Event struct {
	Type   Kind           `json:"type"`
	UserID string         `json:"-"`
	Data   map[string]any `json:"data"`
}

type subscriber struct {
	userID string
	ch     chan Event
}

// Bus is an in-process publish/subscribe service. It is constructed once at
// startup and injected into every component that publishes or subscribes;
// delivery does not cross process boundaries.
type Bus struct {
	mu             sync.RWMutex
	subs           map[int]*subscriber
	nextID         int
	maxSubscribers int
	bufferSize     int
	logger         *zap.Logger
	closed         bool
}

// New creates a bus with a generous subscriber ceiling acting as a leak guard.
func New(maxSubscribers int, logger *zap.Logger) *Bus {
	if maxSubscribers <= 0 {
		maxSubscribers = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:           make(map[int]*subscriber),
		maxSubscribers: maxSubscribers,
		bufferSize:     16,
		logger:         logger,
	}
}

// Subscribe registers a listener for events addressed to userID or Broadcast.
// The returned cancel function releases the subscription and must be called
// when the consumer disconnects.
func (b *Bus) Subscribe(userID string) (<-chan Event, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, nil, domain.NewError(domain.ErrCodeInternal, "event bus is shut down")
	}
	if len(b.subs) >= b.maxSubscribers {
		b.logger.Warn("event bus subscriber ceiling reached",
			zap.Int("max_subscribers", b.maxSubscribers))
		return nil, nil, domain.NewError(domain.ErrCodeInternal, "too many event subscribers")
	}

	id := b.nextID
	b.nextID++
	sub := &subscriber{
		userID: userID,
		ch:     make(chan Event, b.bufferSize),
	}
	b.subs[id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel, nil
}

// Publish delivers ev to matching subscribers without blocking; a slow
// consumer with a full buffer misses the event and relies on the next page
// load instead. A nil bus drops everything, which lets offline tools share
// the publishing services.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, sub := range b.subs {
		if ev.UserID != Broadcast && ev.UserID != sub.userID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.logger.Debug("dropping event for slow subscriber",
				zap.String("type", string(ev.Type)),
				zap.String("user_id", sub.userID))
		}
	}
}

// SubscriberCount reports the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close tears the bus down at process shutdown, closing every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// NotifyUser emits a notification event for a specific user.
func (b *Bus) NotifyUser(userID string, data map[string]any) {
	b.Publish(Event{Type: KindNotification, UserID: userID, Data: data})
}

// PaymentReceived emits a payment event for a user or Broadcast.
func (b *Bus) PaymentReceived(userID string, data map[string]any) {
	b.Publish(Event{Type: KindPaymentReceived, UserID: userID, Data: data})
}

// StatusChanged emits a status change event for a user or Broadcast.
func (b *Bus) StatusChanged(userID string, data map[string]any) {
	b.Publish(Event{Type: KindStatusChanged, UserID: userID, Data: data})
}

// HandoffUpdated emits a handoff progress event for a user or Broadcast.
func (b *Bus) HandoffUpdated(userID string, data map[string]any) {
	b.Publish(Event{Type: KindHandoffUpdate, UserID: userID, Data: data})
}
