package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/spaceship_rental/internal/events"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	messages [][]byte
	fail     bool
	closed   bool
	got      chan struct{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{got: make(chan struct{}, 16)}
}

func (p *recordingPublisher) Name() string { return "test" }

func (p *recordingPublisher) Publish(_ context.Context, subject string, data []byte) error {
	defer func() { p.got <- struct{}{} }()
	if p.fail {
		return errors.New("broker down")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.messages = append(p.messages, data)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish")
	}
}

func TestForwarder_PublishesEnvelope(t *testing.T) {
	bus := events.NewBus()
	pub := newRecordingPublisher()
	fwd := NewForwarder(bus, pub, "node-1", zerolog.Nop())
	fwd.Start(context.Background())

	bus.Publish(events.EventOptimizationCompleted, events.Payload{"income": float64(18)})
	waitFor(t, pub.got)

	if err := fwd.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !pub.closed {
		t.Fatal("publisher not closed")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.subjects) != 1 || pub.subjects[0] != "spaceship.events.optimization.completed" {
		t.Fatalf("unexpected subjects %v", pub.subjects)
	}
	msg, err := Unmarshal(pub.messages[0])
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.EventType != events.EventOptimizationCompleted || msg.NodeID != "node-1" {
		t.Fatalf("unexpected envelope %+v", msg)
	}
	if msg.MessageID == "" || msg.Timestamp.IsZero() {
		t.Fatalf("envelope missing id or timestamp: %+v", msg)
	}
	if msg.Payload["income"] != float64(18) {
		t.Fatalf("unexpected payload %v", msg.Payload)
	}
}

func TestForwarder_PublishErrorDoesNotStop(t *testing.T) {
	bus := events.NewBus()
	pub := newRecordingPublisher()
	pub.fail = true
	fwd := NewForwarder(bus, pub, "node-1", zerolog.Nop())
	fwd.Start(context.Background())
	defer fwd.Stop()

	bus.Publish(events.EventRunsPruned, events.Payload{"deleted": 1})
	waitFor(t, pub.got)
	bus.Publish(events.EventRunsPruned, events.Payload{"deleted": 2})
	waitFor(t, pub.got)
}

func TestMarshal_UniqueMessageIDs(t *testing.T) {
	a, err := Marshal(events.EventRunsPruned, nil, "n")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(events.EventRunsPruned, nil, "n")
	if err != nil {
		t.Fatal(err)
	}
	ma, _ := Unmarshal(a)
	mb, _ := Unmarshal(b)
	if ma.MessageID == mb.MessageID {
		t.Fatal("message ids repeat")
	}
}
