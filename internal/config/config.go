package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
	BootstrapIndex  bool
}

type MetricsConfig struct {
	DefaultMinShipments int
	DefaultLimit        int
	PrometheusEnabled   bool
	PrometheusPath      string
}

type Config struct {
	Environment string
	LogLevel    string
	HTTP        HTTPConfig
	DB          DBConfig
	Metrics     MetricsConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")

	v.AutomaticEnv()
	setDefaults(v)

	_ = v.ReadInConfig()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8000)
	v.SetDefault("HTTP_READ_TIMEOUT", "10s")
	v.SetDefault("HTTP_WRITE_TIMEOUT", "30s")
	v.SetDefault("HTTP_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_QUERY_TIMEOUT", "0s")
	v.SetDefault("DB_BOOTSTRAP_INDEXES", false)
	v.SetDefault("METRICS_DEFAULT_MIN_SHIPMENTS", 10)
	v.SetDefault("METRICS_DEFAULT_LIMIT", 10)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_PATH", "/internal/prometheus")
}

func fromViper(v *viper.Viper) (*Config, error) {
	durations := map[string]time.Duration{}
	for _, key := range []string{
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_SHUTDOWN_TIMEOUT",
		"DB_CONN_MAX_LIFETIME",
		"DB_QUERY_TIMEOUT",
	} {
		d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return nil, fmt.Errorf("%s: invalid duration: %w", key, err)
		}
		durations[key] = d
	}

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTP: HTTPConfig{
			Host:            v.GetString("HTTP_HOST"),
			Port:            v.GetInt("HTTP_PORT"),
			ReadTimeout:     durations["HTTP_READ_TIMEOUT"],
			WriteTimeout:    durations["HTTP_WRITE_TIMEOUT"],
			ShutdownTimeout: durations["HTTP_SHUTDOWN_TIMEOUT"],
			AllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: durations["DB_CONN_MAX_LIFETIME"],
			QueryTimeout:    durations["DB_QUERY_TIMEOUT"],
			BootstrapIndex:  v.GetBool("DB_BOOTSTRAP_INDEXES"),
		},
		Metrics: MetricsConfig{
			DefaultMinShipments: v.GetInt("METRICS_DEFAULT_MIN_SHIPMENTS"),
			DefaultLimit:        v.GetInt("METRICS_DEFAULT_LIMIT"),
			PrometheusEnabled:   v.GetBool("METRICS_ENABLED"),
			PrometheusPath:      v.GetString("METRICS_PATH"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if cfg.DB.QueryTimeout < 0 {
		return fmt.Errorf("DB_QUERY_TIMEOUT must not be negative")
	}
	if cfg.Metrics.DefaultMinShipments < 1 {
		return fmt.Errorf("METRICS_DEFAULT_MIN_SHIPMENTS must be at least 1")
	}
	if cfg.Metrics.DefaultLimit < 1 || cfg.Metrics.DefaultLimit > 100 {
		return fmt.Errorf("METRICS_DEFAULT_LIMIT must be between 1 and 100")
	}
	if cfg.Metrics.PrometheusEnabled && !strings.HasPrefix(cfg.Metrics.PrometheusPath, "/") {
		return fmt.Errorf("METRICS_PATH must start with /")
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
