/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package runs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Pruner periodically deletes runs older than the retention period.
type Pruner struct {
	svc       *Service
	retention time.Duration
	cron      *cron.Cron
	logger    zerolog.Logger

	gate func() bool
}

// NewPruner schedules pruning with a cron expression ("@hourly", "0 3 * * *", ...).
func NewPruner(svc *Service, schedule string, retention time.Duration, logger zerolog.Logger) (*Pruner, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", retention)
	}

	p := &Pruner{
		svc:       svc,
		retention: retention,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		logger:    logger.With().Str("component", "runs-pruner").Logger(),
	}
	if _, err := p.cron.AddFunc(schedule, p.tick); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	return p, nil
}

// SetGate makes scheduled runs skip while gate returns false. RunOnce ignores it.
func (p *Pruner) SetGate(gate func() bool) {
	p.gate = gate
}

// Start runs the schedule in the background.
func (p *Pruner) Start() {
	p.logger.Info().Dur("retention", p.retention).Msg("run pruner started")
	p.cron.Start()
}

// Stop waits for a running prune to finish or ctx to expire.
func (p *Pruner) Stop(ctx context.Context) {
	select {
	case <-p.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce prunes immediately.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	return p.svc.Prune(ctx, time.Now().UTC().Add(-p.retention))
}

func (p *Pruner) tick() {
	if p.gate != nil && !p.gate() {
		p.logger.Debug().Msg("not the leader, skipping prune")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := p.RunOnce(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("prune runs failed")
		return
	}
	if deleted > 0 {
		p.logger.Info().Int64("deleted", deleted).Msg("pruned old runs")
	}
}
