package notify

import "sync"

// MemoryBroker is the in-process Broker used for single-node runs and tests.
type MemoryBroker struct {
	mu   sync.RWMutex
	subs map[string]map[int]func(Event)
	next int
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[int]func(Event))}
}

func (b *MemoryBroker) Publish(userID string, ev Event) error {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs[userID]))
	for _, fn := range b.subs[userID] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(userID string, fn func(Event)) (func(), error) {
	b.mu.Lock()
	id := b.next
	b.next++
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[int]func(Event))
	}
	b.subs[userID][id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs[userID], id)
		if len(b.subs[userID]) == 0 {
			delete(b.subs, userID)
		}
		b.mu.Unlock()
	}, nil
}

func (b *MemoryBroker) Close() {
	b.mu.Lock()
	b.subs = make(map[string]map[int]func(Event))
	b.mu.Unlock()
}
