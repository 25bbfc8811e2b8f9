// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (Store, Cache, UpstreamClient) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the catalogue API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Admin guard. The guard's actual authorization policy is external; this
	// is the simplest possible check (static bearer token) for the admin route group.
	AdminAPIToken string `env:"ADMIN_API_TOKEN"`

	// Upstream catalogue
	UpstreamAPIURL    string `env:"UPSTREAM_API_URL,required"`
	UpstreamUsername  string `env:"UPSTREAM_USERNAME,required"`
	UpstreamSecret    string `env:"UPSTREAM_SECRET,required"`
	UpstreamUserAgent string `env:"UPSTREAM_USER_AGENT" envDefault:"manhwa-catalogue/1.0"`

	// Background synchronisation
	SyncBatchSize    int    `env:"SYNC_BATCH_SIZE" envDefault:"10"`
	SyncCronSchedule string `env:"SYNC_CRON_SCHEDULE"`

	// In-process cache tiers
	CacheTTLDefaultSeconds int `env:"CACHE_TTL_DEFAULT" envDefault:"3600"`
	CacheTTLSearchSeconds  int `env:"CACHE_TTL_SEARCH"  envDefault:"300"`
	CacheTTLTagSeconds     int `env:"CACHE_TTL_TAG"     envDefault:"86400"`
	CacheMaxKeys           int `env:"CACHE_MAX_KEYS"    envDefault:"1000"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	// An unset SYNC_CRON_SCHEDULE defaults to every 15 minutes in production
	// and every 6 hours in any other environment.
	if cfg.SyncCronSchedule == "" {
		cfg.SyncCronSchedule = "@every 6h"
		if cfg.IsProduction() {
			cfg.SyncCronSchedule = "@every 15m"
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
