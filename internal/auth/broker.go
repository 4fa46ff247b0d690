package auth

import "sync"

// Broker fans auth-state changes out to watchers of a session. A nil
// identity means the session has been signed out.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan *Identity]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan *Identity]struct{})}
}

// Subscribe returns a stream that yields current first and then every state
// published for sessionID. Slow readers only ever see the latest state.
// cancel must be called to release the subscription.
func (b *Broker) Subscribe(sessionID string, current *Identity) (<-chan *Identity, func()) {
	ch := make(chan *Identity, 1)
	ch <- current

	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan *Identity]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[sessionID], ch)
			if len(b.subs[sessionID]) == 0 {
				delete(b.subs, sessionID)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

func (b *Broker) Publish(sessionID string, state *Identity) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[sessionID] {
		sendLatest(ch, state)
	}
}

func (b *Broker) Subscribers(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sessionID])
}

// sendLatest replaces any unread state in ch with state.
func sendLatest(ch chan *Identity, state *Identity) {
	for {
		select {
		case ch <- state:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
