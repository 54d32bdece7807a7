// Package netstatus tracks whether the device believes it can reach the
// network and tells subscribers when that changes.
package netstatus

import "sync"

// Event is a reachability transition.
type Event int

const (
	// Offline is emitted when the network became unreachable.
	Offline Event = iota
	// Online is emitted when the network became reachable.
	Online
)

// String returns a human-readable representation of the event.
func (e Event) String() string {
	switch e {
	case Online:
		return "online"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// Monitor holds the current reachability flag. Subscribers are called
// synchronously, in subscription order, only when the flag flips.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   []subscription
	nextID int
}

type subscription struct {
	id int
	fn func(Event)
}

// NewMonitor returns a monitor with the given initial state.
func NewMonitor(online bool) *Monitor {
	return &Monitor{online: online}
}

// Online reports the current reachability flag.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a reachability observation.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]subscription, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	ev := Offline
	if online {
		ev = Online
	}
	for _, s := range subs {
		s.fn(ev)
	}
}

// Subscribe registers fn for transitions. The returned function removes it
// and is safe to call more than once.
func (m *Monitor) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, s := range m.subs {
				if s.id == id {
					m.subs = append(m.subs[:i], m.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Subscribers returns the number of registered listeners.
func (m *Monitor) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
