// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds the node-wide configuration surface for the BFT
// consensus and mempool core: listen/peer configuration, storage mode,
// committee epoching, and the timeouts that govern rounds, fetches, and
// handshakes (spec §5, §6).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/aleobft/core/p2pmsg"
	"gopkg.in/yaml.v3"
)

// StorageMode selects the Storage Service backend.
type StorageMode string

const (
	StorageProduction  StorageMode = "production"
	StorageDevelopment StorageMode = "development"
)

// Config holds every recognized option from spec §6 plus the ambient
// timeouts of §5.
type Config struct {
	// Network
	NodeIP             string   `json:"node_ip" yaml:"node_ip"`
	TrustedPeers       []string `json:"trusted_peers" yaml:"trusted_peers"`
	MaxConnections     int      `json:"max_connections" yaml:"max_connections"`
	AllowExternalPeers bool     `json:"allow_external_peers" yaml:"allow_external_peers"`
	MaxMessageSize     int      `json:"max_message_size" yaml:"max_message_size"`

	// Storage
	StorageMode StorageMode `json:"storage_mode" yaml:"storage_mode"`

	// Committee / epoch
	CommitteeEpochLength uint64 `json:"committee_epoch_length" yaml:"committee_epoch_length"`

	// Round / fetch control
	RoundTimeout            time.Duration `json:"round_timeout" yaml:"round_timeout"`
	FetchTimeout            time.Duration `json:"fetch_timeout" yaml:"fetch_timeout"`
	GCDepth                 uint64        `json:"gc_depth" yaml:"gc_depth"`
	MaxRedundantRequestsCap int           `json:"max_redundant_requests_cap" yaml:"max_redundant_requests_cap"`
	RedundancyMultiplier    int           `json:"redundancy_multiplier" yaml:"redundancy_multiplier"`

	// Ambient timeouts (§5)
	HandshakeTimeout time.Duration `json:"handshake_timeout" yaml:"handshake_timeout"`
	PingInterval     time.Duration `json:"ping_interval" yaml:"ping_interval"`
	MaxClockSkew     time.Duration `json:"max_clock_skew" yaml:"max_clock_skew"`
}

// MaxRedundancy derives max_redundancy from committee size, per §4.C and
// §9's Open Question: the formula is re-derived from committee size
// rather than hardcoded, so reconfiguring the committee re-derives the
// bound instead of silently keeping a stale constant.
func (c Config) MaxRedundancy(committeeSize int) int {
	mult := c.RedundancyMultiplier
	if mult <= 0 {
		mult = 1
	}
	v := (committeeSize / 3) * mult
	if v < 1 {
		v = 1
	}
	if c.MaxRedundantRequestsCap > 0 && v > c.MaxRedundantRequestsCap {
		v = c.MaxRedundantRequestsCap
	}
	return v
}

// Builder provides a fluent interface for constructing a Config, the way
// the teacher's config.Builder assembles consensus parameters.
type Builder struct {
	config *Config
	err    error
}

// NewBuilder creates a new configuration builder seeded with
// DefaultConfig.
func NewBuilder() *Builder {
	d := DefaultConfig()
	return &Builder{config: &d}
}

func (b *Builder) WithNodeIP(addr string) *Builder {
	if b.err == nil {
		b.config.NodeIP = addr
	}
	return b
}

func (b *Builder) WithTrustedPeers(peers []string) *Builder {
	if b.err == nil {
		b.config.TrustedPeers = peers
	}
	return b
}

func (b *Builder) WithStorageMode(mode StorageMode) *Builder {
	if b.err != nil {
		return b
	}
	if mode != StorageProduction && mode != StorageDevelopment {
		b.err = fmt.Errorf("config: unknown storage mode %q", mode)
		return b
	}
	b.config.StorageMode = mode
	return b
}

func (b *Builder) WithRoundTimeout(d time.Duration) *Builder {
	if b.err == nil {
		b.config.RoundTimeout = d
	}
	return b
}

func (b *Builder) WithFetchTimeout(d time.Duration) *Builder {
	if b.err == nil {
		b.config.FetchTimeout = d
	}
	return b
}

func (b *Builder) WithGCDepth(depth uint64) *Builder {
	if b.err == nil {
		b.config.GCDepth = depth
	}
	return b
}

// WithMaxMessageSize sets the wire frame size above which an envelope
// is rejected as a ProtocolViolation (spec §6, §7).
func (b *Builder) WithMaxMessageSize(n int) *Builder {
	if b.err != nil {
		return b
	}
	if n < 1 {
		b.err = fmt.Errorf("config: max_message_size must be >= 1, got %d", n)
		return b
	}
	b.config.MaxMessageSize = n
	return b
}

// WithYAMLFile loads and merges a YAML config file into the builder's
// config, the fields present in the file overriding whatever was
// already set. Unknown keys are ignored rather than rejected.
func (b *Builder) WithYAMLFile(path string) *Builder {
	if b.err != nil {
		return b
	}
	data, err := os.ReadFile(path)
	if err != nil {
		b.err = fmt.Errorf("config: reading %s: %w", path, err)
		return b
	}
	if err := yaml.Unmarshal(data, b.config); err != nil {
		b.err = fmt.Errorf("config: parsing %s: %w", path, err)
		return b
	}
	return b
}

func (b *Builder) WithMaxRedundantRequestsCap(cap int) *Builder {
	if b.err != nil {
		return b
	}
	if cap < 1 {
		b.err = fmt.Errorf("config: max_redundant_requests_cap must be >= 1, got %d", cap)
		return b
	}
	b.config.MaxRedundantRequestsCap = cap
	return b
}

// Build validates and returns the assembled Config.
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	return b.config, nil
}

// Validate checks the config for internally-consistent values.
func (c *Config) Validate() error {
	if c.MaxConnections < 1 {
		return fmt.Errorf("config: max_connections must be >= 1")
	}
	if c.RoundTimeout <= 0 {
		return fmt.Errorf("config: round_timeout must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("config: fetch_timeout must be positive")
	}
	if c.RedundancyMultiplier < 1 {
		return fmt.Errorf("config: redundancy_multiplier must be >= 1")
	}
	if c.MaxMessageSize < 1 {
		return fmt.Errorf("config: max_message_size must be >= 1")
	}
	if c.StorageMode != StorageProduction && c.StorageMode != StorageDevelopment {
		return fmt.Errorf("config: unknown storage mode %q", c.StorageMode)
	}
	return nil
}

// DefaultConfig returns the reference configuration. With a committee of
// 102 or more validators this yields MaxRedundancy =
// clamp(⌊102/3⌋ * 1, 1, 34) = 34 — the reference value spec §4.C and
// §8's redundancy-cap test (55 distinct peers, 34 outbound requests)
// exercise.
func DefaultConfig() Config {
	return Config{
		NodeIP:                  "0.0.0.0:4130",
		MaxConnections:          50,
		AllowExternalPeers:      true,
		MaxMessageSize:          p2pmsg.DefaultMaxMessageSize,
		StorageMode:             StorageProduction,
		CommitteeEpochLength:    360,
		RoundTimeout:            5 * time.Second,
		FetchTimeout:            10 * time.Second,
		GCDepth:                 50,
		MaxRedundantRequestsCap: 34,
		RedundancyMultiplier:    1,
		HandshakeTimeout:        20 * time.Second,
		PingInterval:            30 * time.Second,
		MaxClockSkew:            10 * time.Second,
	}
}
