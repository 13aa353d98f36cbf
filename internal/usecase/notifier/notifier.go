package notifier

import (
	"sync"

	"github.com/google/uuid"
	"github.com/simaogato/timedeposit-backend/internal/domain"
)

// Observer receives ledger change events
type Observer func(event domain.ChangeEvent)

// Notifier broadcasts ledger change events to registered observers
// The latest event is kept and replayed to each new observer so a late view can catch up.
// Nothing older is queued: events emitted with no observer attached are only visible through that replay.
type Notifier struct {
	mu        sync.Mutex
	nextID    int
	observers map[int]Observer
	latest    *domain.ChangeEvent
}

// NewNotifier creates a new Notifier instance
func NewNotifier() *Notifier {
	return &Notifier{
		observers: make(map[int]Observer),
	}
}

// Subscribe registers an observer and returns its detach handle
// Calling the handle more than once is harmless
func (n *Notifier) Subscribe(observer Observer) (detach func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.observers[id] = observer
	latest := n.latest
	n.mu.Unlock()

	if latest != nil {
		observer(*latest)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.observers, id)
			n.mu.Unlock()
		})
	}
}

// Notify stamps the event with an ID if missing and delivers it to every observer
// Observers are called synchronously, outside the lock, in no particular order
func (n *Notifier) Notify(event domain.ChangeEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	n.mu.Lock()
	n.latest = &event
	observers := make([]Observer, 0, len(n.observers))
	for _, o := range n.observers {
		observers = append(observers, o)
	}
	n.mu.Unlock()

	for _, o := range observers {
		o(event)
	}
}

// Latest returns the last event emitted, if any
func (n *Notifier) Latest() (domain.ChangeEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.latest == nil {
		return domain.ChangeEvent{}, false
	}
	return *n.latest, true
}

// Observers returns the number of attached observers
func (n *Notifier) Observers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.observers)
}
