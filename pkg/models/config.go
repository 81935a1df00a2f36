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

package models

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can say "90s" or "24h".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	*d = Duration(parsed)

	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	if len(data) >= 2 && data[0] == '"' {
		return d.UnmarshalText(data[1 : len(data)-1])
	}

	return d.UnmarshalText(data)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// DatabaseConfig is the Postgres connection configuration.
type DatabaseConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Database string `json:"database" yaml:"database"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode"`
	MaxConns int32  `json:"max_conns" yaml:"max_conns"`
}

// NATSConfig configures the optional lifecycle event stream.
type NATSConfig struct {
	URL     string `json:"url" yaml:"url"`
	Stream  string `json:"stream" yaml:"stream"`
	Enabled bool   `json:"enabled" yaml:"enabled"`

	// mTLS material; all three must be set to enable TLS.
	CAFile     string `json:"ca_file,omitempty" yaml:"ca_file,omitempty"`
	CertFile   string `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile    string `json:"key_file,omitempty" yaml:"key_file,omitempty"`
	ServerName string `json:"server_name,omitempty" yaml:"server_name,omitempty"`
}

// AuthConfig configures verification of watcher tokens. Agents authenticate
// with per-device enrollment keys checked against storage.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
	Issuer    string `json:"issuer" yaml:"issuer"`
}

// CoreConfig is the top-level configuration for the core server.
type CoreConfig struct {
	ListenAddr       string   `json:"listen_addr" yaml:"listen_addr"`
	MetricsAddr      string   `json:"metrics_addr" yaml:"metrics_addr"`
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins"`
	OfflineThreshold Duration `json:"offline_threshold" yaml:"offline_threshold"`
	SweepInterval    Duration `json:"sweep_interval" yaml:"sweep_interval"`
	DeploymentExpiry Duration `json:"deployment_expiry" yaml:"deployment_expiry"`
	TenantCacheTTL   Duration `json:"tenant_cache_ttl" yaml:"tenant_cache_ttl"`
	Workers          int      `json:"workers" yaml:"workers"`

	Database DatabaseConfig `json:"database" yaml:"database"`
	NATS     NATSConfig     `json:"nats" yaml:"nats"`
	Auth     AuthConfig     `json:"auth" yaml:"auth"`
	Logging  *LoggerConfig  `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// LoggerConfig mirrors logger.Config; duplicated here to keep pkg/models
// free of dependencies on other fleetdeck packages.
type LoggerConfig struct {
	Level      string `json:"level" yaml:"level"`
	Debug      bool   `json:"debug" yaml:"debug"`
	Output     string `json:"output" yaml:"output"`
	TimeFormat string `json:"time_format" yaml:"time_format"`
}
