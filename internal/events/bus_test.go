package events

import (
	"sync"
	"testing"
)

func TestBus_PublishDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventOptimizationCompleted)
	other := bus.Subscribe(EventRunsPruned)

	bus.Publish(EventOptimizationCompleted, Payload{"income": int64(18)})

	select {
	case p := <-sub:
		if p["income"] != int64(18) {
			t.Fatalf("unexpected payload %v", p)
		}
	default:
		t.Fatal("expected payload for subscriber")
	}

	select {
	case p := <-other:
		t.Fatalf("unexpected delivery to other type: %v", p)
	default:
	}
}

func TestBus_PublishDropsWhenBufferFull(t *testing.T) {
	bus := NewBus()
	sub := bus.SubscribeBuffered(EventOptimizationCompleted, 1)

	bus.Publish(EventOptimizationCompleted, Payload{"n": 1})
	bus.Publish(EventOptimizationCompleted, Payload{"n": 2})

	if p := <-sub; p["n"] != 1 {
		t.Fatalf("expected first payload, got %v", p)
	}
	select {
	case p := <-sub:
		t.Fatalf("expected second payload to be dropped, got %v", p)
	default:
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventRunsPruned)
	bus.Unsubscribe(EventRunsPruned, sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel")
	}
	// publishing after unsubscribe must not panic
	bus.Publish(EventRunsPruned, Payload{})
}

func TestBus_PublishConcurrentWithUnsubscribe(t *testing.T) {
	bus := NewBus()
	for i := 0; i < 2000; i++ {
		sub := bus.SubscribeBuffered(EventOptimizationCompleted, 1)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			bus.Publish(EventOptimizationCompleted, Payload{"n": i})
		}()
		go func() {
			defer wg.Done()
			bus.Unsubscribe(EventOptimizationCompleted, sub)
		}()
		wg.Wait()
	}

	bus.mu.RLock()
	defer bus.mu.RUnlock()
	if n := len(bus.subs[EventOptimizationCompleted]); n != 0 {
		t.Fatalf("expected no subscribers left, got %d", n)
	}
}
