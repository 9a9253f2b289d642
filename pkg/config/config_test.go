package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
environment: test
backend:
  type: memory
universe:
  file: data/sp500_historical.csv
`

func TestParse_Defaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "memory", c.Backend.Prices)
	assert.Equal(t, 5, c.Backtest.TopK)
	assert.Equal(t, []int{2, 5}, c.Backtest.HoldYears)
	assert.Equal(t, "SPY", c.Backtest.Benchmark)
	assert.Equal(t, "quartile", c.Scoring.SuggestMode)
	assert.Equal(t, 65.0, c.Scoring.Threshold)
	assert.Equal(t, 24*time.Hour, c.Redis.SeriesTTL)
	assert.False(t, c.NeedsClickHouse())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing environment", "backend: {type: memory}\nuniverse: {file: u.csv}\n", "environment is required"},
		{"bad backend", "environment: t\nbackend: {type: s3}\nuniverse: {file: u.csv}\n", "backend.type must be"},
		{"clickhouse without host", "environment: t\nbackend: {type: clickhouse}\nuniverse: {file: u.csv}\n", "clickhouse.host is required"},
		{"kafka without brokers", "environment: t\nbackend: {type: kafka}\nuniverse: {file: u.csv}\n", "kafka.brokers cannot be empty"},
		{"missing universe", "environment: t\nbackend: {type: memory}\n", "universe.file is required"},
		{"bad hold years", "environment: t\nbackend: {type: memory}\nuniverse: {file: u.csv}\nbacktest: {hold_years: [0]}\n", "hold_years must be positive"},
		{"bad mode", "environment: t\nbackend: {type: memory}\nuniverse: {file: u.csv}\nscoring: {suggest_mode: magic}\n", "suggest_mode must be"},
		{"bad threshold", "environment: t\nbackend: {type: memory}\nuniverse: {file: u.csv}\nscoring: {threshold: 120}\n", "threshold must be within"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	env := map[string]string{
		"BACKEND":         "kafka",
		"KAFKA_BROKERS":   "k1:9092,k2:9092",
		"REDIS_ADDR":      "redis:6379",
		"CLICKHOUSE_HOST": "ch",
		"PORT":            "9090",
		"HOLD_YEARS":      "1, 3,x",
	}
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "kafka", c.Backend.Type)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "ch", c.ClickHouse.Host)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, []int{1, 3}, c.Backtest.HoldYears)
	assert.NoError(t, c.Validate())
}
