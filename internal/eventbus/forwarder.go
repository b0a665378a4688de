/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus forwards in-process events to an external broker.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/spaceship_rental/internal/events"
	"github.com/friendsincode/spaceship_rental/internal/telemetry"
)

// SubjectPrefix prefixes every broker subject: + event type.
const SubjectPrefix = "spaceship.events."

// Publisher delivers an encoded message to a broker subject.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// Message is the envelope written to the broker.
type Message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

// Subject returns the broker subject for an event type.
func Subject(eventType events.EventType) string {
	return SubjectPrefix + string(eventType)
}

// Marshal builds the envelope for an event.
func Marshal(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(Message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	})
}

// Unmarshal parses an envelope.
func Unmarshal(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal event message: %w", err)
	}
	return &msg, nil
}

// NodeID identifies this process in forwarded messages.
func NodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "node"
	}
	return host + "-" + uuid.NewString()[:8]
}

// Forwarder copies every event published on the bus to a Publisher.
type Forwarder struct {
	bus       *events.Bus
	publisher Publisher
	nodeID    string
	timeout   time.Duration
	logger    zerolog.Logger

	subs   map[events.EventType]events.Subscriber
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewForwarder creates a forwarder. Call Start to begin forwarding.
func NewForwarder(bus *events.Bus, publisher Publisher, nodeID string, logger zerolog.Logger) *Forwarder {
	return &Forwarder{
		bus:       bus,
		publisher: publisher,
		nodeID:    nodeID,
		timeout:   5 * time.Second,
		logger:    logger.With().Str("component", "eventbus").Str("backend", publisher.Name()).Logger(),
		subs:      make(map[events.EventType]events.Subscriber),
	}
}

// Start subscribes to every event type.
func (f *Forwarder) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)
	for _, eventType := range events.AllTypes() {
		sub := f.bus.SubscribeBuffered(eventType, 64)
		f.subs[eventType] = sub
		f.wg.Add(1)
		go f.forward(ctx, eventType, sub)
	}
	f.logger.Info().Str("node_id", f.nodeID).Msg("event forwarding started")
}

func (f *Forwarder) forward(ctx context.Context, eventType events.EventType, sub events.Subscriber) {
	defer f.wg.Done()
	subject := Subject(eventType)
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub:
			if !ok {
				return
			}
			f.send(ctx, subject, eventType, payload)
		}
	}
}

func (f *Forwarder) send(ctx context.Context, subject string, eventType events.EventType, payload events.Payload) {
	data, err := Marshal(eventType, payload, f.nodeID)
	if err != nil {
		telemetry.EventsForwarded.WithLabelValues(f.publisher.Name(), "error").Inc()
		f.logger.Error().Err(err).Str("event", string(eventType)).Msg("encode event")
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if err := f.publisher.Publish(pubCtx, subject, data); err != nil {
		telemetry.EventsForwarded.WithLabelValues(f.publisher.Name(), "error").Inc()
		f.logger.Warn().Err(err).Str("subject", subject).Msg("forward event failed")
		return
	}
	telemetry.EventsForwarded.WithLabelValues(f.publisher.Name(), "ok").Inc()
}

// Stop unsubscribes, waits for in-flight messages and closes the publisher.
func (f *Forwarder) Stop() error {
	if f.cancel != nil {
		f.cancel()
	}
	for eventType, sub := range f.subs {
		f.bus.Unsubscribe(eventType, sub)
	}
	f.wg.Wait()
	f.subs = make(map[events.EventType]events.Subscriber)
	return f.publisher.Close()
}
