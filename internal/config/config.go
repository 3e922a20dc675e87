package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/annel0/navtiles/internal/navmesh"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации navtiles.
type Config struct {
	Recast    navmesh.Settings `yaml:"recast"`
	Cache     CacheConfig      `yaml:"cache"`
	Updater   UpdaterConfig    `yaml:"updater"`
	EventBus  EventBusConfig   `yaml:"eventbus"`
	Store     StoreConfig      `yaml:"store"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
	Logging   LoggingConfig    `yaml:"logging"`
}

type CacheConfig struct {
	// MaxTriangles ограничивает меш одного тайла; 0: без ограничения
	MaxTriangles int `yaml:"max_triangles"`
	// MaxFootprintTiles: содержимое крупнее этого числа тайлов окна не занимает строк; 0: умолчание кеша
	MaxFootprintTiles int `yaml:"max_footprint_tiles"`
}

type UpdaterConfig struct {
	Workers        int `yaml:"workers"`
	MaxTiles       int `yaml:"max_tiles"`
	PollIntervalMs int `yaml:"poll_interval_ms"`
}

// PollInterval возвращает период опроса кеша
func (u UpdaterConfig) PollInterval() time.Duration {
	return time.Duration(u.PollIntervalMs) * time.Millisecond
}

type EventBusConfig struct {
	// URL сервера NATS; пусто: шина в памяти
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

// GetURL возвращает адрес NATS с поддержкой fallback значений
func (e *EventBusConfig) GetURL() string {
	return getStringWithEnvFallback(e.URL, "NAVTILES_NATS_URL", "")
}

// RetentionDuration возвращает срок хранения событий в стриме
func (e *EventBusConfig) RetentionDuration() time.Duration {
	if e.Retention <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(e.Retention) * time.Hour
}

// StoreConfig настраивает хранилище доставленных мешей
type StoreConfig struct {
	Enabled bool `yaml:"enabled"`
	// Dir задаёт каталог BadgerDB; пустой каталог означает хранилище в памяти
	Dir string `yaml:"dir"`
}

// GetDir возвращает каталог хранилища с поддержкой fallback значений
func (s *StoreConfig) GetDir() string {
	return getStringWithEnvFallback(s.Dir, "NAVTILES_STORE_DIR", "")
}

type MetricsConfig struct {
	Port int `yaml:"port"`
}

// GetPort возвращает порт Prometheus метрик с поддержкой fallback значений
func (m *MetricsConfig) GetPort() int {
	return getIntWithEnvFallback(m.Port, "NAVTILES_METRICS_PORT", 2112)
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	// Endpoint: host:port коллектора OTLP HTTP; пусто: OTEL_EXPORTER_OTLP_ENDPOINT экспортера
	Endpoint string `yaml:"endpoint"`
	// Insecure отключает TLS до коллектора
	Insecure bool `yaml:"insecure"`
	// SampleRatio: доля записываемых трасс; 0: все
	SampleRatio float64 `yaml:"sample_ratio"`
}

// GetServiceName возвращает имя сервиса для трейсов
func (t *TelemetryConfig) GetServiceName() string {
	return getStringWithEnvFallback(t.ServiceName, "OTEL_SERVICE_NAME", "navtiles")
}

// GetEndpoint возвращает адрес коллектора с поддержкой fallback значений
func (t *TelemetryConfig) GetEndpoint() string {
	return getStringWithEnvFallback(t.Endpoint, "NAVTILES_OTLP_ENDPOINT", "")
}

// GetInsecure возвращает режим без TLS с поддержкой fallback значений
func (t *TelemetryConfig) GetInsecure() bool {
	return getBoolWithEnvFallback(t.Insecure, "NAVTILES_OTLP_INSECURE")
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
	MaxSizeMB    int    `yaml:"max_size_mb"`
	MaxBackups   int    `yaml:"max_backups"`
	MaxAgeDays   int    `yaml:"max_age_days"`
}

// GetConsoleLevel возвращает уровень консольного лога с поддержкой fallback значений
func (l *LoggingConfig) GetConsoleLevel() string {
	return getStringWithEnvFallback(l.ConsoleLevel, "NAVTILES_LOG_LEVEL", "INFO")
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Recast:  navmesh.DefaultSettings(),
		Updater: UpdaterConfig{MaxTiles: 512, PollIntervalMs: 50},
		EventBus: EventBusConfig{
			Stream:    "NAVTILES",
			Retention: 24,
			Buffer:    1024,
		},
		Telemetry: TelemetryConfig{ServiceName: "navtiles"},
		Logging: LoggingConfig{
			Dir:          "logs",
			ConsoleLevel: "INFO",
			FileLevel:    "DEBUG",
			MaxSizeMB:    100,
			MaxBackups:   5,
			MaxAgeDays:   30,
		},
	}
}

// Validate проверяет значения, которые нельзя молча заменить умолчаниями
func (c *Config) Validate() error {
	if err := c.Recast.Validate(); err != nil {
		return fmt.Errorf("recast: %w", err)
	}
	if c.Cache.MaxTriangles < 0 {
		return fmt.Errorf("cache.max_triangles: negative value %d", c.Cache.MaxTriangles)
	}
	if c.Cache.MaxFootprintTiles < 0 {
		return fmt.Errorf("cache.max_footprint_tiles: negative value %d", c.Cache.MaxFootprintTiles)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio: %v is outside [0, 1]", c.Telemetry.SampleRatio)
	}
	if c.Updater.Workers < 0 || c.Updater.MaxTiles < 0 || c.Updater.PollIntervalMs < 0 {
		return fmt.Errorf("updater: negative values are not allowed")
	}
	return nil
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	if configValue > 0 {
		return configValue
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}
	return defaultValue
}

// getBoolWithEnvFallback возвращает true из конфига, иначе разбирает env
func getBoolWithEnvFallback(configValue bool, envVar string) bool {
	if configValue {
		return true
	}
	v, err := strconv.ParseBool(os.Getenv(envVar))
	return err == nil && v
}

// getStringWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getStringWithEnvFallback(configValue, envVar, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultValue
}

// Load читает YAML файл конфигурации поверх умолчаний.
// Если path == "", пытается прочитать из ENV NAVTILES_CONFIG или возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("NAVTILES_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
