/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package payload reads, writes and generates contract lists in the request
// format of the optimize endpoint.
package payload

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/spaceship_rental/internal/optimizer"
	"github.com/friendsincode/spaceship_rental/internal/storage"
)

var (
	// ErrTrailingData is returned when a JSON payload continues after the contract list.
	ErrTrailingData = errors.New("unexpected data after payload")

	// ErrNotList is returned when the payload is null or empty instead of a list.
	ErrNotList = errors.New("payload must be a list of contracts")

	// ErrMissingField is returned when a contract is null, lacks a field or
	// sets it to null.
	ErrMissingField = errors.New("missing contract field")
)

// Format is a payload encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a flag value to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q", name)
	}
}

// FormatForKey guesses the format from a file extension, defaulting to JSON.
func FormatForKey(key string) Format {
	switch strings.ToLower(path.Ext(key)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// wireContract mirrors optimizer.Contract with every field required.
type wireContract struct {
	Name     *string `json:"name" yaml:"name"`
	Start    *int64  `json:"start" yaml:"start"`
	Duration *int64  `json:"duration" yaml:"duration"`
	Price    *int64  `json:"price" yaml:"price"`
}

func (w wireContract) contract(i int) (optimizer.Contract, error) {
	missing := func(field string) error {
		return fmt.Errorf("contract %d: %w %q", i, ErrMissingField, field)
	}
	switch {
	case w.Name == nil:
		return optimizer.Contract{}, missing("name")
	case w.Start == nil:
		return optimizer.Contract{}, missing("start")
	case w.Duration == nil:
		return optimizer.Contract{}, missing("duration")
	case w.Price == nil:
		return optimizer.Contract{}, missing("price")
	}
	return optimizer.Contract{Name: *w.Name, Start: *w.Start, Duration: *w.Duration, Price: *w.Price}, nil
}

// Decode parses a contract list. Numbers must be integers and every contract
// must carry name, start, duration and price.
func Decode(data []byte, format Format) ([]optimizer.Contract, error) {
	if format != FormatYAML {
		format = FormatJSON
	}
	var wire []wireContract
	if format == FormatYAML {
		if err := yaml.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode yaml payload: %w", err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&wire); err != nil {
			return nil, fmt.Errorf("decode json payload: %w", err)
		}
		if dec.More() {
			return nil, fmt.Errorf("decode json payload: %w", ErrTrailingData)
		}
	}
	if wire == nil {
		return nil, fmt.Errorf("decode %s payload: %w", format, ErrNotList)
	}

	contracts := make([]optimizer.Contract, 0, len(wire))
	for i, w := range wire {
		c, err := w.contract(i)
		if err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", format, err)
		}
		contracts = append(contracts, c)
	}
	return contracts, nil
}

// Encode renders any value (contracts or a result) in the given format.
func Encode(v any, format Format) ([]byte, error) {
	if format == FormatYAML {
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return data, nil
	}
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(data, '\n'), nil
}

// Load fetches and decodes the payload stored under key.
func Load(ctx context.Context, store storage.ObjectStore, key string) ([]optimizer.Contract, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load payload %s: %w", key, err)
	}
	return Decode(data, FormatForKey(key))
}

// Save encodes contracts in the format implied by key and stores them.
func Save(ctx context.Context, store storage.ObjectStore, key string, contracts []optimizer.Contract) error {
	data, err := Encode(contracts, FormatForKey(key))
	if err != nil {
		return err
	}
	if err := store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save payload %s: %w", key, err)
	}
	return nil
}

// Digest identifies a contract list. Order matters: equally profitable
// selections are reported differently for different orders.
func Digest(contracts []optimizer.Contract) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, c := range contracts {
		_ = enc.Encode(c)
	}
	return hex.EncodeToString(h.Sum(nil))
}
