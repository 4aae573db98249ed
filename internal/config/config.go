package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/shaiso/QCSched/internal/calendar"
)

// Значения по умолчанию.
const (
	DefaultAPIPort   = "8080"
	DefaultSchedPort = "8081"
	DefaultSweepCron = "*/5 * * * *"
	DefaultAPIURL    = "http://localhost:8080"
)

// Config — параметры запуска сервисов.
type Config struct {
	DBURL           string
	RabbitMQURL     string
	APIPort         string
	SchedPort       string
	Timezone        string
	SweepCron       string
	FrequenciesFile string
	MigrateOnStart  bool
	LogLevel        string
	LogFormat       string
	APIURL          string
}

// Load читает конфигурацию из окружения, предварительно подгрузив .env.
func Load() (*Config, error) {
	if err := loadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		return nil, err
	}
	return FromEnv(os.Getenv)
}

// FromEnv собирает конфигурацию из произвольного источника переменных.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		DBURL:           get("DB_URL", ""),
		RabbitMQURL:     get("RABBITMQ_URL", ""),
		APIPort:         get("API_PORT", DefaultAPIPort),
		SchedPort:       get("SCHED_PORT", DefaultSchedPort),
		Timezone:        get("QC_TIMEZONE", calendar.DefaultTimezone),
		SweepCron:       get("SWEEP_CRON", DefaultSweepCron),
		FrequenciesFile: get("FREQUENCIES_FILE", ""),
		LogLevel:        get("LOG_LEVEL", "INFO"),
		LogFormat:       get("LOG_FORMAT", "json"),
		APIURL:          get("QCSCHED_API_URL", DefaultAPIURL),
	}

	if v := get("MIGRATE_ON_START", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("MIGRATE_ON_START: %w", err)
		}
		cfg.MigrateOnStart = b
	}

	for name, port := range map[string]string{"API_PORT": cfg.APIPort, "SCHED_PORT": cfg.SchedPort} {
		if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
			return nil, fmt.Errorf("%s: invalid port %q", name, port)
		}
	}

	return cfg, nil
}

// Clock возвращает часы в зоне QC_TIMEZONE.
func (c *Config) Clock() (*calendar.Clock, error) {
	return calendar.Load(c.Timezone)
}

// loadDotEnv подгружает .env. Отсутствие файла по умолчанию не ошибка,
// отсутствие явно указанного файла — ошибка.
func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
