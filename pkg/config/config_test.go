package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testYAML renders a valid minimal config with the given engine block.
func testYAML(engine string) string {
	return fmt.Sprintf(`
environment: test
clickhouse:
  host: localhost
kafka:
  brokers: ["localhost:9092"]
feeds:
  live:
    websocket_url: wss://stream.example.com/quotes
  alt:
    base_url: https://rest.example.com/v1
engine:
%s`, engine)
}

func minimalYAML() string {
	return testYAML(`  assets: ["XAUUSD", "EURUSD"]`)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalYAML()))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, "signalgate", c.Redis.Prefix)
	assert.Equal(t, "structural-evidence", c.Kafka.EvidenceTopic)
	assert.Equal(t, "signal-events", c.Kafka.EventsTopic)
	assert.Equal(t, 0.65, c.Engine.MinReleaseConfidence)
	assert.Equal(t, 30, c.Engine.CooldownMinutes)
	assert.Equal(t, 15, c.Engine.ExpiryMinutes)
	assert.Equal(t, time.Minute, c.Engine.Intervals.Analyzer)
	assert.Equal(t, 10*time.Second, c.Engine.Intervals.Watcher)
	assert.Equal(t, 30*time.Second, c.Engine.Intervals.Reconciler)
	assert.Equal(t, 3*time.Minute, c.Engine.EvidenceTTL)
	assert.Equal(t, 0.0005, c.Engine.Levels.EntryBand)
	assert.Equal(t, []string{"XAUUSD", "EURUSD"}, c.Engine.Assets)
}

func TestLoadOverridesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, testYAML(`  assets: ["XAUUSD"]
  min_release_confidence: 0.8
  intervals:
    analyzer: 2m
    watcher: 15s
`)))
	require.NoError(t, err)

	assert.Equal(t, 0.8, c.Engine.MinReleaseConfidence)
	assert.Equal(t, 2*time.Minute, c.Engine.Intervals.Analyzer)
	assert.Equal(t, 15*time.Second, c.Engine.Intervals.Watcher)
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
engine:
  assets: ["XAUUSD"]
`))
	assert.Error(t, err)
}

func TestValidateRejectsWatcherSlowerThanAnalyzer(t *testing.T) {
	_, err := Load(writeConfig(t, testYAML(`  assets: ["XAUUSD"]
  intervals:
    analyzer: 10s
    watcher: 1m
`)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watcher must be shorter than analyzer")
}

func TestValidateRejectsEmptyAssetSymbol(t *testing.T) {
	_, err := Load(writeConfig(t, testYAML(`  assets: ["XAUUSD", "  "]`)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty symbol")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("ASSETS", "GBPUSD,USDJPY")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("LIVE_FEED_API_KEY", "k-live")

	c, err := LoadWithEnv(writeConfig(t, minimalYAML()))
	require.NoError(t, err)

	assert.Equal(t, []string{"GBPUSD", "USDJPY"}, c.Engine.Assets)
	assert.Equal(t, "redis.internal", c.Redis.Host)
	assert.Equal(t, "k-live", c.Feeds.Live.APIKey)
}
