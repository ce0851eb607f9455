package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	BackendMemory   = "memory"
	BackendPostgres = "postgres"

	DefaultPageSize  = 25
	DefaultPageLimit = 50
)

type Config struct {
	Env    string
	DB     db
	Server server
	Logger logger
	Auth   auth
	Store  store
}

type db struct {
	DatabaseURI string `env:"DATABASE_URI"`
	Migrations  string `env:"MIGRATIONS_PATH"`
}

type server struct {
	RunAddress string `env:"RUN_ADDRESS"`
}

type logger struct {
	LogLevel string `env:"LOG_LEVEL"`
}

// auth - учетные данные basic auth. Пустой пользователь отключает проверку.
type auth struct {
	User     string `env:"STORE_USER"`
	Password string `env:"STORE_PASSWORD"`
}

type store struct {
	Backend   string `env:"STORE_BACKEND"`
	PageSize  int    `env:"PAGE_SIZE"`
	PageLimit int    `env:"PAGE_SIZE_LIMIT"`
}

func Load() (*Config, error) {
	// .env не обязателен, переменные окружения важнее
	_ = godotenv.Load(envPath)

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("run_address", "localhost:8080")
	v.SetDefault("app_env", EnvLocal)
	v.SetDefault("migrations_path", "migrations")
	v.SetDefault("store_backend", BackendMemory)
	v.SetDefault("page_size", DefaultPageSize)
	v.SetDefault("page_size_limit", DefaultPageLimit)

	cfg := &Config{
		Env: v.GetString("app_env"),
		DB: db{
			DatabaseURI: v.GetString("database_uri"),
			Migrations:  v.GetString("migrations_path"),
		},
		Server: server{RunAddress: v.GetString("run_address")},
		Logger: logger{LogLevel: v.GetString("log_level")},
		Auth: auth{
			User:     v.GetString("store_user"),
			Password: v.GetString("store_password"),
		},
		Store: store{
			Backend:   v.GetString("store_backend"),
			PageSize:  v.GetInt("page_size"),
			PageLimit: v.GetInt("page_size_limit"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.DB.DatabaseURI == "" {
			return errors.New("DATABASE_URI обязателен для STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("неизвестный STORE_BACKEND %q", c.Store.Backend)
	}

	if c.Store.PageLimit <= 0 {
		return fmt.Errorf("PAGE_SIZE_LIMIT должен быть положительным: %d", c.Store.PageLimit)
	}
	if c.Store.PageSize <= 0 || c.Store.PageSize > c.Store.PageLimit {
		return fmt.Errorf("PAGE_SIZE должен быть в пределах 1..%d: %d", c.Store.PageLimit, c.Store.PageSize)
	}
	if c.Auth.User != "" && c.Auth.Password == "" {
		return errors.New("STORE_PASSWORD обязателен, если задан STORE_USER")
	}
	return nil
}
