/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// RunSource tells where an optimization was requested from.
type RunSource string

const (
	RunSourceAPI RunSource = "api"
	RunSourceCLI RunSource = "cli"
)

// OptimizationRun records one accepted optimization request and its result.
type OptimizationRun struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time `gorm:"index:idx_runs_created_at;not null" json:"created_at"`
	Source         RunSource `gorm:"type:varchar(16);not null" json:"source"`
	Algorithm      string    `gorm:"type:varchar(16);not null" json:"algorithm"`
	InputDigest    string    `gorm:"type:varchar(64);index:idx_runs_input_digest" json:"input_digest"`
	ContractCount  int       `json:"contract_count"`
	Income         int64     `json:"income"`
	Path           []string  `gorm:"type:text;serializer:json" json:"path,omitempty"`
	DurationMicros int64     `json:"duration_us"`
	CacheHit       bool      `json:"cache_hit"`
	Subject        string    `gorm:"type:varchar(255)" json:"subject,omitempty"` // JWT subject when auth is on
}

// TableName returns the table name for GORM.
func (OptimizationRun) TableName() string {
	return "optimization_runs"
}
