/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the daemon's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig describes one Postgres server the platform connects to.
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int32  `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslMode"`
}

// AssemblerConfig configures the organization database assembler.
type AssemblerConfig struct {
	// Server is the admin ("target") connection used for database and
	// role provisioning. Connections to individual organization databases
	// reuse its credentials.
	Server ServerConfig `yaml:"server"`

	// ProductionURL is the production database URL
	// (scheme://host:port/dbname) imported into organization databases
	// and the transporter over FDW.
	ProductionURL string `yaml:"productionUrl"`

	// ProductionUsername/ProductionPassword authenticate FDW user
	// mappings against the production database.
	ProductionUsername string `yaml:"productionUsername"`
	ProductionPassword string `yaml:"productionPassword"`
}

// IndexerConfig configures the background expiration/indexing service.
type IndexerConfig struct {
	// BackgroundExpiredDataDeletionEnabled gates the expire-and-reindex
	// task; when false the task logs and exits.
	BackgroundExpiredDataDeletionEnabled bool `yaml:"backgroundExpiredDataDeletionEnabled"`

	// BatchSize is the number of dirty rows indexed per batch.
	BatchSize int `yaml:"batchSize"`

	// LockDuration is the distributed per-entity-set lease duration.
	LockDuration time.Duration `yaml:"lockDuration"`

	// Parallelism bounds how many entity sets are processed concurrently
	// within one run.
	Parallelism int `yaml:"parallelism"`
}

// Config is the daemon's full configuration.
type Config struct {
	Assembler AssemblerConfig `yaml:"assembler"`
	Indexer   IndexerConfig   `yaml:"indexer"`

	RedisURL string `yaml:"redisUrl"`

	MeiliURL    string `yaml:"meiliUrl"`
	MeiliAPIKey string `yaml:"meiliApiKey"`
}

// Load reads and validates the YAML config at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Indexer.BatchSize == 0 {
		c.Indexer.BatchSize = 1000
	}
	if c.Indexer.LockDuration == 0 {
		c.Indexer.LockDuration = time.Minute
	}
	if c.Indexer.Parallelism == 0 {
		c.Indexer.Parallelism = 4
	}
	if c.Assembler.Server.Port == 0 {
		c.Assembler.Server.Port = 5432
	}
}

func (c *Config) validate() error {
	if c.Assembler.Server.Host == "" {
		return fmt.Errorf("assembler.server.host is required")
	}
	if c.Assembler.Server.Username == "" {
		return fmt.Errorf("assembler.server.username is required")
	}
	if c.Assembler.ProductionURL == "" {
		return fmt.Errorf("assembler.productionUrl is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("redisUrl is required")
	}
	return nil
}
