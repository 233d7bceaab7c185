package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/hedger/pricing"
)

// Config is the complete engine configuration: issuer identity and pool,
// the insurable asset table, journaling, and the demo scenario.
type Config struct {
	Issuer   IssuerConfig   `json:"issuer" yaml:"issuer"`
	Assets   []AssetConfig  `json:"assets" yaml:"assets"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Scenario ScenarioConfig `json:"scenario" yaml:"scenario"`
}

// IssuerConfig identifies the issuing account and its payout pool.
type IssuerConfig struct {
	Account    string `json:"account" yaml:"account"`
	Currency   string `json:"currency" yaml:"currency"`
	RateOracle string `json:"rate_oracle" yaml:"rate_oracle"`
	PoolFunds  uint64 `json:"pool_funds" yaml:"pool_funds"`
	PeriodUnit string `json:"period_unit" yaml:"period_unit"` // duration of one coverage unit, e.g. "24h"
}

// ParsePeriodUnit converts the period unit string to a time.Duration.
func (c IssuerConfig) ParsePeriodUnit() (time.Duration, error) {
	return time.ParseDuration(c.PeriodUnit)
}

// AssetConfig declares an insurable asset and its price feed.
type AssetConfig struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Oracle   string `json:"oracle" yaml:"oracle"`
	Decimals uint32 `json:"decimals" yaml:"decimals"`
}

// JournalConfig selects the audit-trail backend.
type JournalConfig struct {
	Type         string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	PoliciesFile string `json:"policies_file,omitempty" yaml:"policies_file,omitempty"`
	ClaimsFile   string `json:"claims_file,omitempty" yaml:"claims_file,omitempty"`
	DBPath       string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// ScenarioConfig scripts a full issue-then-claim run for the demo command.
type ScenarioConfig struct {
	Holder       string      `json:"holder" yaml:"holder"`
	Asset        string      `json:"asset" yaml:"asset"`
	Tokens       uint64      `json:"tokens" yaml:"tokens"`
	Holdings     uint64      `json:"holdings" yaml:"holdings"`
	Plan         uint8       `json:"plan" yaml:"plan"`
	PeriodUnits  uint64      `json:"period_units" yaml:"period_units"`
	InitialPrice int64       `json:"initial_price" yaml:"initial_price"`
	Rate         uint64      `json:"rate" yaml:"rate"`
	PriceSteps   []PriceStep `json:"price_steps,omitempty" yaml:"price_steps,omitempty"`
}

// PriceStep is one scripted price move in the scenario.
type PriceStep struct {
	Price int64  `json:"price" yaml:"price"`
	Delay string `json:"delay" yaml:"delay"` // e.g., "1h", "30m", "1s"
}

// ParseDuration converts the delay string to time.Duration.
func (ps PriceStep) ParseDuration() (time.Duration, error) {
	if ps.Delay == "" {
		return 0, nil
	}
	return time.ParseDuration(ps.Delay)
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays HEDGER_* environment variables onto the config, e.g.
// HEDGER_ISSUER_CURRENCY or HEDGER_JOURNAL_DBPATH.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process("hedger", c); err != nil {
		return fmt.Errorf("apply env overrides: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if (len(path) > 5 && path[len(path)-5:] == ".yaml") || (len(path) > 4 && path[len(path)-4:] == ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Asset looks up an asset declaration by symbol.
func (c *Config) Asset(symbol string) (AssetConfig, bool) {
	for _, a := range c.Assets {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return AssetConfig{}, false
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Issuer.Account == "" {
		return fmt.Errorf("issuer.account is required")
	}
	if c.Issuer.Currency == "" {
		return fmt.Errorf("issuer.currency is required")
	}
	if c.Issuer.RateOracle == "" {
		return fmt.Errorf("issuer.rate_oracle is required")
	}
	if _, err := c.Issuer.ParsePeriodUnit(); err != nil {
		return fmt.Errorf("issuer.period_unit: %w", err)
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("at least one asset is required")
	}
	for _, a := range c.Assets {
		if a.Symbol == "" || a.Oracle == "" {
			return fmt.Errorf("asset symbol and oracle are required")
		}
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.PoliciesFile == "" || c.Journal.ClaimsFile == "" {
			return fmt.Errorf("journal policies_file and claims_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	s := c.Scenario
	if s.Holder == "" {
		return fmt.Errorf("scenario.holder is required")
	}
	if _, ok := c.Asset(s.Asset); !ok {
		return fmt.Errorf("unknown scenario asset: %s", s.Asset)
	}
	if s.Tokens == 0 {
		return fmt.Errorf("scenario.tokens must be positive")
	}
	if !pricing.Plan(s.Plan).Valid() {
		return fmt.Errorf("scenario.plan must be one of %v", pricing.Plans())
	}
	if s.PeriodUnits == 0 {
		return fmt.Errorf("scenario.period_units must be positive")
	}
	if s.InitialPrice <= 0 {
		return fmt.Errorf("scenario.initial_price must be positive")
	}
	if s.Rate == 0 {
		return fmt.Errorf("scenario.rate must be positive")
	}
	for _, ps := range s.PriceSteps {
		if _, err := ps.ParseDuration(); err != nil {
			return fmt.Errorf("scenario price step delay %q: %w", ps.Delay, err)
		}
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Issuer: IssuerConfig{
			Account:    "issuer",
			Currency:   "USD",
			RateOracle: "USD/NATIVE",
			PoolFunds:  1_000_000,
			PeriodUnit: "24h",
		},
		Assets: []AssetConfig{
			{Symbol: "SOL", Oracle: "SOL/USD", Decimals: 0},
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./hedger.sqlite",
		},
		Scenario: ScenarioConfig{
			Holder:       "alice",
			Asset:        "SOL",
			Tokens:       100,
			Holdings:     100,
			Plan:         5,
			PeriodUnits:  30,
			InitialPrice: 1000,
			Rate:         1,
			PriceSteps: []PriceStep{
				{Price: 900, Delay: "24h"},
				{Price: 800, Delay: "24h"},
			},
		},
	}
}
