package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	unit, err := cfg.Issuer.ParsePeriodUnit()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, unit)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing issuer account", func(c *Config) { c.Issuer.Account = "" }},
		{"missing currency", func(c *Config) { c.Issuer.Currency = "" }},
		{"missing rate oracle", func(c *Config) { c.Issuer.RateOracle = "" }},
		{"bad period unit", func(c *Config) { c.Issuer.PeriodUnit = "a week" }},
		{"no assets", func(c *Config) { c.Assets = nil }},
		{"asset missing oracle", func(c *Config) { c.Assets[0].Oracle = "" }},
		{"bad journal type", func(c *Config) { c.Journal.Type = "parquet" }},
		{"csv without files", func(c *Config) { c.Journal = JournalConfig{Type: "csv"} }},
		{"sqlite without path", func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} }},
		{"missing holder", func(c *Config) { c.Scenario.Holder = "" }},
		{"unknown asset", func(c *Config) { c.Scenario.Asset = "DOGE" }},
		{"zero tokens", func(c *Config) { c.Scenario.Tokens = 0 }},
		{"bad plan", func(c *Config) { c.Scenario.Plan = 7 }},
		{"zero period units", func(c *Config) { c.Scenario.PeriodUnits = 0 }},
		{"zero price", func(c *Config) { c.Scenario.InitialPrice = 0 }},
		{"zero rate", func(c *Config) { c.Scenario.Rate = 0 }},
		{"bad step delay", func(c *Config) { c.Scenario.PriceSteps = []PriceStep{{Price: 1, Delay: "soon"}} }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hedger.yaml")

	doc := `
issuer:
  account: issuer
  currency: USD
  rate_oracle: USD/NATIVE
  pool_funds: 50000
  period_unit: 24h
assets:
  - symbol: SOL
    oracle: SOL/USD
    decimals: 0
journal:
  type: none
scenario:
  holder: bob
  asset: SOL
  tokens: 10
  holdings: 10
  plan: 10
  period_units: 7
  initial_price: 500
  rate: 2
  price_steps:
    - price: 400
      delay: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "bob", cfg.Scenario.Holder)
	assert.Equal(t, uint64(50_000), cfg.Issuer.PoolFunds)
	assert.Equal(t, "none", cfg.Journal.Type)
	require.Len(t, cfg.Scenario.PriceSteps, 1)

	d, err := cfg.Scenario.PriceSteps[0].ParseDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d)
}

func TestLoadFromFileJSONFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hedger.json")

	cfg := Default()
	cfg.Journal = JournalConfig{Type: "none"}
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Issuer.Account, got.Issuer.Account)
	assert.Equal(t, cfg.Scenario.Tokens, got.Scenario.Tokens)
}

func TestApplyEnvOverride(t *testing.T) {
	t.Setenv("HEDGER_ISSUER_CURRENCY", "EUR")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "EUR", cfg.Issuer.Currency)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestAssetLookup(t *testing.T) {
	cfg := Default()

	a, ok := cfg.Asset("SOL")
	assert.True(t, ok)
	assert.Equal(t, "SOL/USD", a.Oracle)

	_, ok = cfg.Asset("DOGE")
	assert.False(t, ok)
}
