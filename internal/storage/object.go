/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package storage loads and stores payload files on the local filesystem or
// in S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore abstracts object storage operations.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Location is a parsed payload address.
type Location struct {
	Bucket string // empty for local files
	Key    string
}

// ParseLocation accepts "s3://bucket/key" or a filesystem path.
func ParseLocation(raw string) (Location, error) {
	if raw == "" {
		return Location{}, fmt.Errorf("empty location")
	}
	rest, ok := strings.CutPrefix(raw, "s3://")
	if !ok {
		return Location{Key: raw}, nil
	}
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return Location{}, fmt.Errorf("invalid s3 location %q, expected s3://bucket/key", raw)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// Open returns the store serving raw and the key to use with it.
func Open(ctx context.Context, raw string, cfg S3Config) (ObjectStore, string, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, "", err
	}
	if loc.Bucket == "" {
		return NewFileStore(""), loc.Key, nil
	}
	store, err := NewS3Store(ctx, loc.Bucket, cfg)
	if err != nil {
		return nil, "", err
	}
	return store, loc.Key, nil
}
