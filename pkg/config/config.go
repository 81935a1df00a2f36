/*
 * Copyright 2026 Relayops, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads the core configuration from a JSON or YAML file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relayops/fleetdeck/pkg/models"
)

var ErrDatabaseRequired = errors.New("config: database host and name are required")

const (
	defaultListenAddr       = ":8090"
	defaultMetricsAddr      = ":9090"
	defaultOfflineThreshold = 90 * time.Second
	defaultSweepInterval    = 30 * time.Second
	defaultDeploymentExpiry = 24 * time.Hour
	defaultTenantCacheTTL   = time.Minute
	defaultStreamName       = "fleetdeck-events"
	defaultWorkers          = 8
)

// LoadFile reads, decodes, and defaults a CoreConfig. The format is
// chosen by extension: .yaml/.yml decode as YAML, everything else as
// JSON.
func LoadFile(path string) (*models.CoreConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &models.CoreConfig{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON config %s: %w", path, err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills every unset field that has a sane default.
func ApplyDefaults(cfg *models.CoreConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}

	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = defaultMetricsAddr
	}

	if cfg.OfflineThreshold <= 0 {
		cfg.OfflineThreshold = models.Duration(defaultOfflineThreshold)
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = models.Duration(defaultSweepInterval)
	}

	if cfg.DeploymentExpiry <= 0 {
		cfg.DeploymentExpiry = models.Duration(defaultDeploymentExpiry)
	}

	if cfg.TenantCacheTTL <= 0 {
		cfg.TenantCacheTTL = models.Duration(defaultTenantCacheTTL)
	}

	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}

	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "prefer"
	}

	if cfg.NATS.Stream == "" {
		cfg.NATS.Stream = defaultStreamName
	}
}

// Validate rejects configurations the server cannot start with.
func Validate(cfg *models.CoreConfig) error {
	if cfg.Database.Host == "" || cfg.Database.Database == "" {
		return ErrDatabaseRequired
	}

	return nil
}
