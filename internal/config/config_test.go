package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "navtiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NAVTILES_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, navmesh.DefaultSettings(), cfg.Recast)
	assert.Equal(t, 512, cfg.Updater.MaxTiles)
	assert.Equal(t, 50*time.Millisecond, cfg.Updater.PollInterval())
	assert.Equal(t, 24*time.Hour, cfg.EventBus.RetentionDuration())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
recast:
  tile_size: 128
cache:
  max_triangles: 4096
updater:
  workers: 3
  poll_interval_ms: 10
eventbus:
  url: nats://127.0.0.1:4222
metrics:
  port: 9100
telemetry:
  enabled: true
  endpoint: otel-collector:4318
  insecure: true
  sample_ratio: 0.25
logging:
  console_level: DEBUG
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Recast.TileSize)
	assert.Equal(t, navmesh.DefaultSettings().BorderSize, cfg.Recast.BorderSize, "незаданные поля берутся из умолчаний")
	assert.Equal(t, 4096, cfg.Cache.MaxTriangles)
	assert.Equal(t, 3, cfg.Updater.Workers)
	assert.Equal(t, 512, cfg.Updater.MaxTiles)
	assert.Equal(t, 10*time.Millisecond, cfg.Updater.PollInterval())
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.EventBus.GetURL())
	assert.Equal(t, 9100, cfg.Metrics.GetPort())
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "otel-collector:4318", cfg.Telemetry.GetEndpoint())
	assert.True(t, cfg.Telemetry.GetInsecure())
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRatio)
	assert.Equal(t, "DEBUG", cfg.Logging.GetConsoleLevel())
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "updater:\n  max_tiles: 64\n")
	t.Setenv("NAVTILES_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Updater.MaxTiles)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "recast: [1, 2"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "recast:\n  cell_size: -1\n"))
	assert.ErrorIs(t, err, navmesh.ErrInvalidSettings)

	_, err = Load(writeConfig(t, "cache:\n  max_triangles: -5\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "cache:\n  max_footprint_tiles: -1\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "telemetry:\n  sample_ratio: 1.5\n"))
	assert.Error(t, err)
}

func TestEnvFallbacks(t *testing.T) {
	t.Run("переменные окружения", func(t *testing.T) {
		t.Setenv("NAVTILES_METRICS_PORT", "9200")
		t.Setenv("NAVTILES_NATS_URL", "nats://nats:4222")
		t.Setenv("NAVTILES_LOG_LEVEL", "WARN")
		t.Setenv("OTEL_SERVICE_NAME", "navtiles-test")
		t.Setenv("NAVTILES_STORE_DIR", "/var/lib/navtiles")
		t.Setenv("NAVTILES_OTLP_ENDPOINT", "collector:4318")
		t.Setenv("NAVTILES_OTLP_INSECURE", "true")

		var cfg Config
		assert.Equal(t, 9200, cfg.Metrics.GetPort())
		assert.Equal(t, "nats://nats:4222", cfg.EventBus.GetURL())
		assert.Equal(t, "WARN", cfg.Logging.GetConsoleLevel())
		assert.Equal(t, "navtiles-test", cfg.Telemetry.GetServiceName())
		assert.Equal(t, "/var/lib/navtiles", cfg.Store.GetDir())
		assert.Equal(t, "collector:4318", cfg.Telemetry.GetEndpoint())
		assert.True(t, cfg.Telemetry.GetInsecure())
	})

	t.Run("конфиг важнее окружения", func(t *testing.T) {
		t.Setenv("NAVTILES_METRICS_PORT", "9200")
		cfg := Config{Metrics: MetricsConfig{Port: 9300}}
		assert.Equal(t, 9300, cfg.Metrics.GetPort())
	})

	t.Run("умолчания", func(t *testing.T) {
		t.Setenv("NAVTILES_METRICS_PORT", "not-a-port")
		t.Setenv("NAVTILES_NATS_URL", "")
		t.Setenv("NAVTILES_STORE_DIR", "")
		t.Setenv("NAVTILES_OTLP_ENDPOINT", "")
		t.Setenv("NAVTILES_OTLP_INSECURE", "maybe")
		var cfg Config
		assert.Equal(t, 2112, cfg.Metrics.GetPort())
		assert.Empty(t, cfg.EventBus.GetURL())
		assert.Empty(t, cfg.Store.GetDir(), "пустой каталог: хранилище в памяти")
		assert.Empty(t, cfg.Telemetry.GetEndpoint())
		assert.False(t, cfg.Telemetry.GetInsecure())
	})
}
