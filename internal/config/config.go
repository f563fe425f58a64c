package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverInMemory = "in-memory"
	DriverPostgres = "postgres"
)

// Config - конфигурация приложения.
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Navigation NavigationConfig
	State      StateConfig
	Log        LogConfig
}

// ServerConfig - настройки HTTP-сервера.
type ServerConfig struct {
	Addr string
}

// StorageConfig выбирает и настраивает хранилище сервиса данных.
type StorageConfig struct {
	Driver            string
	DSN               string
	Seed              bool
	Debug             bool
	ConnectAttempts   int           `mapstructure:"connect_attempts"`
	ConnectMaxBackoff time.Duration `mapstructure:"connect_max_backoff"`
	BatchWait         time.Duration `mapstructure:"batch_wait"`
}

// NavigationConfig - настройки маршрутизации.
type NavigationConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// StateConfig - настройки контейнера состояния.
type StateConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

// LogConfig - настройки логгера.
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load читает конфигурацию из файла и окружения (префикс BLOGSTATE_).
// Явный path важнее BLOGSTATE_CONFIG и пути по умолчанию.
func Load(path string) (Config, error) {
	v := viper.New()

	// значения по умолчанию
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("storage.driver", DriverInMemory)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.seed", true)
	v.SetDefault("storage.debug", false)
	v.SetDefault("storage.connect_attempts", 5)
	v.SetDefault("storage.connect_max_backoff", 30*time.Second)
	v.SetDefault("storage.batch_wait", time.Millisecond)
	v.SetDefault("navigation.page_size", 5)
	v.SetDefault("state.queue_size", 64)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv("BLOGSTATE_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "blog-state"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("BLOGSTATE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// файл по умолчанию необязателен, явно указанный - обязателен
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || path != "" {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate проверяет значения, которые иначе упали бы позже при запуске.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverInMemory:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn must be set for %s storage", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Navigation.PageSize <= 0 {
		return fmt.Errorf("navigation.page_size must be positive, got %d", c.Navigation.PageSize)
	}
	return nil
}
