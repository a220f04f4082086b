package storage

import "sync"

// Broadcaster fans a value out to every registered handler.
// Publish calls are serialized, so handlers observe values in publish order.
type Broadcaster[T any] struct {
	mu      sync.Mutex
	publish sync.Mutex
	next    int
	subs    map[int]func(T)
}

// Subscribe registers fn and returns a function that removes it.
func (b *Broadcaster[T]) Subscribe(fn func(T)) func() {
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[int]func(T))
	}
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// SubscribeWithInitial registers fn and hands it the value built by initial
// before any later Publish can reach it.
func (b *Broadcaster[T]) SubscribeWithInitial(fn func(T), initial func() (T, bool)) func() {
	b.publish.Lock()
	defer b.publish.Unlock()

	unsubscribe := b.Subscribe(fn)
	if v, ok := initial(); ok {
		fn(v)
	}
	return unsubscribe
}

// Publish builds a value with produce and delivers it to all handlers.
// produce runs under the publish lock so that a later snapshot is never
// delivered before an earlier one.
func (b *Broadcaster[T]) Publish(produce func() (T, bool)) {
	b.publish.Lock()
	defer b.publish.Unlock()

	v, ok := produce()
	if !ok {
		return
	}

	b.mu.Lock()
	handlers := make([]func(T), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(v)
	}
}

// Len returns the number of registered handlers.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
