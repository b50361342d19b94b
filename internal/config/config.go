package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tallybooks/tally/internal/logging"
)

// Config represents the top-level tally.yaml configuration.
type Config struct {
	Company  CompanyConfig  `yaml:"company"`
	Billing  BillingConfig  `yaml:"billing"`
	Database DatabaseConfig `yaml:"database"`
	Logging  logging.Config `yaml:"logging"`
}

// CompanyConfig identifies the firm issuing invoices.
type CompanyConfig struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"` // ISO 4217 code, presentation only
}

// BillingConfig carries invoicing defaults.
type BillingConfig struct {
	DefaultTaxRate float64 `yaml:"default_tax_rate"` // fraction, e.g. 0.0825
	DefaultNetDays int     `yaml:"default_net_days"` // due date offset for new invoices
}

// DatabaseConfig points at the sqlite database file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Load reads a tally.yaml file from disk. Environment variables
// TALLY_DB_PATH and TALLY_LOG_LEVEL override the file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if v := os.Getenv("TALLY_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TALLY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(companyName string) *Config {
	return &Config{
		Company: CompanyConfig{
			Name:     companyName,
			Currency: "USD",
		},
		Billing: BillingConfig{
			DefaultTaxRate: 0,
			DefaultNetDays: 30,
		},
		Database: DatabaseConfig{
			Path: "tally.db",
		},
		Logging: logging.DefaultConfig(),
	}
}
