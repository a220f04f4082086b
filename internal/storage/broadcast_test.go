package storage_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"barangay/backend/internal/storage"

	"github.com/stretchr/testify/assert"
)

func TestBroadcaster_ConcurrentPublishesArriveInProduceOrder(t *testing.T) {
	var b storage.Broadcaster[int]
	var counter atomic.Int64
	produce := func() (int, bool) { return int(counter.Add(1)), true }

	var mu sync.Mutex
	var seen []int
	unsubscribe := b.SubscribeWithInitial(func(v int) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	}, produce)
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Publish(produce)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 51)
	for i := range seen {
		assert.Equal(t, i+1, seen[i], "value %d delivered out of order", i)
	}
}

func TestBroadcaster_SkippedProduceAndUnsubscribe(t *testing.T) {
	var b storage.Broadcaster[string]
	var got []string
	unsubscribe := b.Subscribe(func(v string) { got = append(got, v) })
	assert.Equal(t, 1, b.Len())

	b.Publish(func() (string, bool) { return "ignored", false })
	b.Publish(func() (string, bool) { return "first", true })
	unsubscribe()
	unsubscribe()
	b.Publish(func() (string, bool) { return "after", true })

	assert.Equal(t, []string{"first"}, got)
	assert.Equal(t, 0, b.Len())
}
