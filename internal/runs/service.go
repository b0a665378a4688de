/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package runs keeps the history of optimization requests.
package runs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/spaceship_rental/internal/events"
	"github.com/friendsincode/spaceship_rental/internal/models"
	"github.com/friendsincode/spaceship_rental/internal/telemetry"
)

// ErrNotFound is returned when a run ID is unknown.
var ErrNotFound = errors.New("run not found")

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Service stores and queries optimization runs.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a run history service. bus may be nil.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "runs").Logger(),
	}
}

// Record stores run, assigning an ID and timestamp when missing.
func (s *Service) Record(ctx context.Context, run *models.OptimizationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Get returns the run with the given ID. IDs that are not UUIDs are reported
// as ErrNotFound without querying, since uuid columns reject them.
func (s *Service) Get(ctx context.Context, id string) (*models.OptimizationRun, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var run models.OptimizationRun
	err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// List returns the most recent runs without their paths.
func (s *Service) List(ctx context.Context, limit int) ([]models.OptimizationRun, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	var list []models.OptimizationRun
	err := s.db.WithContext(ctx).
		Omit("path").
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return list, nil
}

// Prune deletes runs created before cutoff and returns how many were removed.
func (s *Service) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.OptimizationRun{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune runs: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		telemetry.RunsPrunedTotal.Add(float64(res.RowsAffected))
		if s.bus != nil {
			s.bus.Publish(events.EventRunsPruned, events.Payload{
				"deleted": res.RowsAffected,
				"cutoff":  cutoff.Format(time.RFC3339),
			})
		}
	}
	return res.RowsAffected, nil
}
