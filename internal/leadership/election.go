/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package leadership elects one replica to run cluster-wide maintenance.
package leadership

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/spaceship_rental/internal/telemetry"
)

const (
	defaultElectionKey   = "spaceship:leader:maintenance"
	defaultLeaseDuration = 15 * time.Second
	defaultRetryInterval = 5 * time.Second
)

// releaseScript deletes the key only while it still holds our instance ID.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// ElectionConfig configures leader election behavior.
type ElectionConfig struct {
	ElectionKey   string
	LeaseDuration time.Duration

	// RetryInterval is how often the lease is acquired or renewed. Must be
	// shorter than LeaseDuration.
	RetryInterval time.Duration

	InstanceID string
}

// DefaultConfig returns default election configuration.
func DefaultConfig() ElectionConfig {
	return ElectionConfig{
		ElectionKey:   defaultElectionKey,
		LeaseDuration: defaultLeaseDuration,
		RetryInterval: defaultRetryInterval,
		InstanceID:    uuid.NewString(),
	}
}

// Election holds a Redis lease while this instance is the leader.
type Election struct {
	client *redis.Client
	logger zerolog.Logger
	config ElectionConfig

	leader atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewElection creates an election on an existing client. The client stays owned by the caller.
func NewElection(client *redis.Client, config ElectionConfig, logger zerolog.Logger) (*Election, error) {
	if config.ElectionKey == "" {
		config.ElectionKey = defaultElectionKey
	}
	if config.LeaseDuration <= 0 {
		config.LeaseDuration = defaultLeaseDuration
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = defaultRetryInterval
	}
	if config.RetryInterval >= config.LeaseDuration {
		return nil, fmt.Errorf("retry interval %s must be shorter than lease %s", config.RetryInterval, config.LeaseDuration)
	}
	if config.InstanceID == "" {
		config.InstanceID = uuid.NewString()
	}

	return &Election{
		client: client,
		logger: logger.With().Str("component", "leader_election").Str("instance_id", config.InstanceID).Logger(),
		config: config,
		done:   make(chan struct{}),
	}, nil
}

// Start campaigns in the background until Stop or ctx cancellation.
func (e *Election) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.logger.Info().Dur("lease", e.config.LeaseDuration).Msg("starting leader election")

	go func() {
		defer close(e.done)
		ticker := time.NewTicker(e.config.RetryInterval)
		defer ticker.Stop()

		e.campaign(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.campaign(ctx)
			}
		}
	}()
}

// Stop ends the campaign and releases the lease if held.
func (e *Election) Stop() {
	e.once.Do(func() {
		if e.cancel == nil {
			return
		}
		e.cancel()
		<-e.done

		if e.leader.Load() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.client.Eval(ctx, releaseScript, []string{e.config.ElectionKey}, e.config.InstanceID).Err(); err != nil {
				e.logger.Warn().Err(err).Msg("release leadership failed")
			}
			e.setLeader(false)
		}
	})
}

// IsLeader reports whether this instance currently holds the lease.
func (e *Election) IsLeader() bool {
	return e.leader.Load()
}

// Leader returns the instance ID holding the lease, or "" when there is none.
func (e *Election) Leader(ctx context.Context) (string, error) {
	id, err := e.client.Get(ctx, e.config.ElectionKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get leader: %w", err)
	}
	return id, nil
}

func (e *Election) campaign(ctx context.Context) {
	held, err := e.acquire(ctx)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Warn().Err(err).Msg("leader lease check failed")
		}
		held = false
	}
	e.setLeader(held)
}

// acquire takes the lease if free, or renews it if already ours.
func (e *Election) acquire(ctx context.Context) (bool, error) {
	ok, err := e.client.SetNX(ctx, e.config.ElectionKey, e.config.InstanceID, e.config.LeaseDuration).Result()
	if err != nil {
		return false, fmt.Errorf("set lease: %w", err)
	}
	if ok {
		return true, nil
	}

	current, err := e.Leader(ctx)
	if err != nil || current != e.config.InstanceID {
		return false, err
	}
	if err := e.client.Expire(ctx, e.config.ElectionKey, e.config.LeaseDuration).Err(); err != nil {
		return false, fmt.Errorf("renew lease: %w", err)
	}
	return true, nil
}

func (e *Election) setLeader(leader bool) {
	if e.leader.Swap(leader) == leader {
		return
	}
	if leader {
		telemetry.LeaderStatus.Set(1)
		telemetry.LeaderChanges.WithLabelValues("acquired").Inc()
		e.logger.Info().Msg("acquired leadership")
	} else {
		telemetry.LeaderStatus.Set(0)
		telemetry.LeaderChanges.WithLabelValues("lost").Inc()
		e.logger.Warn().Msg("lost leadership")
	}
}
