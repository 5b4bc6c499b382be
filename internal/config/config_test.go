package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polycopy/internal/domain"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAndValidate_Defaults(t *testing.T) {
	path := writeTempFile(t, `
strategies:
  - trader_address: "0xABCDEF"
    alias: whale
`)

	cfg, err := LoadAndValidate(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultGammaURL, cfg.API.GammaURL)
	assert.Equal(t, SourcePoll, cfg.Source.Mode)
	assert.Equal(t, 2*time.Second, cfg.Source.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.Engine.SweepInterval)
	assert.Equal(t, 2*time.Hour, cfg.Engine.Retention)
	assert.Equal(t, 25.0, cfg.Engine.MinNetExposureUSD)
	assert.Equal(t, ExecutorPaper, cfg.Executor.Mode)
	assert.Equal(t, 1.0, cfg.Executor.GlobalAllocation)

	s := cfg.Strategies[0].Domain()
	assert.Equal(t, "0xabcdef", s.TraderAddress)
	assert.Equal(t, domain.StrategyDiversifiedCopy, s.Type)
	assert.Equal(t, 0.12, s.Conditions.MinTraderPortfolioAlloc)
	assert.Equal(t, 0.90, s.Conditions.SingleSideDominanceThreshold)
	assert.Equal(t, 10.0, s.Conditions.TimeWindowMinutes)
	assert.Equal(t, 5, s.Conditions.MaxExecutionsPerMarket)
	assert.Equal(t, 0.75, s.Risk.MaxTotalOpenExposure)
	assert.Equal(t, 0.22, s.Risk.MaxSingleMarketExposure)
	assert.Equal(t, 0.02, s.Risk.MaxSingleTradeSize)
	assert.Equal(t, 6, s.Risk.MaxOpenPositions)
	assert.Equal(t, domain.ExposureRetain, s.ExposureReset)
	require.Len(t, s.Sizing.Rules, 2)
	assert.True(t, math.IsInf(s.Sizing.Rules[1].MaxTraderAlloc, 1))
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_TARGET_WALLET", "0x1234")

	path := writeTempFile(t, `
strategies:
  - trader_address: ${TEST_TARGET_WALLET}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0x1234", cfg.Strategies[0].TraderAddress)
}

func TestLoad_ExplicitZeroDisablesGate(t *testing.T) {
	path := writeTempFile(t, `
strategies:
  - trader_address: "0x1"
    conditions:
      single_side_dominance_threshold: 0
      time_window_minutes: 0
    sizing:
      mode: WALLET_SCALED
      rules:
        - {min_trader_alloc: 0.05, max_trader_alloc: .inf, copy_wallet_ratio: 0.01}
`)

	cfg, err := LoadAndValidate(path)
	require.NoError(t, err)

	s := cfg.Strategies[0].Domain()
	assert.Zero(t, s.Conditions.SingleSideDominanceThreshold)
	assert.Zero(t, s.Conditions.TimeWindowMinutes)
	assert.Equal(t, 0.03, s.Conditions.IgnorePriceBelow)
	assert.Equal(t, domain.SizingWalletScaled, s.Sizing.Mode)
	assert.Equal(t, 0.01, s.Sizing.Rules[0].Size(s.Sizing.Mode).Value())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			name:  "no strategies",
			yaml:  "source: {mode: poll}\n",
			field: "strategies",
		},
		{
			name:  "missing trader address",
			yaml:  "strategies:\n  - alias: nobody\n",
			field: "strategies[0].trader_address",
		},
		{
			name: "overlapping tiers",
			yaml: `
strategies:
  - trader_address: "0x1"
    sizing:
      rules:
        - {min_trader_alloc: 0.1, max_trader_alloc: 0.3, copy_size_ratio: 0.01}
        - {min_trader_alloc: 0.2, max_trader_alloc: 0.4, copy_size_ratio: 0.02}
`,
			field: "strategies[0].sizing",
		},
		{
			name: "fraction out of range",
			yaml: `
strategies:
  - trader_address: "0x1"
    risk: {max_total_open_exposure: 1.5}
`,
			field: "strategies[0].risk.max_total_open_exposure",
		},
		{
			name: "live mode without wallet",
			yaml: `
executor: {mode: live}
strategies:
  - trader_address: "0x1"
`,
			field: "wallet.address",
		},
		{
			name: "postgres without dsn",
			yaml: `
storage: {backend: postgres}
strategies:
  - trader_address: "0x1"
`,
			field: "storage.postgres_dsn",
		},
		{
			name: "duplicate trader",
			yaml: `
strategies:
  - trader_address: "0xAA"
  - trader_address: "0xaa"
`,
			field: "strategies[1].trader_address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAndValidate(writeTempFile(t, tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfiguration), "expected configuration error, got %v", err)

			var cfgErr *domain.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
