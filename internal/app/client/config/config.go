package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultEndpoint        = "http://localhost:8080"
	defaultUserAgent       = "ParlSync/1.0"
	defaultLogLevel        = "info"
	defaultEnv             = "local"
	defaultConfigDir       = ".parlsync"
	defaultJournalFile     = "journal.db"
	defaultRequestTimeout  = 4
	defaultAuditCollection = "logs"

	// BulkChunkSize - максимум записей в одном запросе на массовое создание
	BulkChunkSize = 100
	// LookupBatchSize - максимум id в одном запросе поиска существующих записей (ограничение хранилища)
	LookupBatchSize = 25
	// PageSize - размер страницы при выборке всей коллекции
	PageSize = 50
)

type Config struct {
	Env             string        `mapstructure:"app_env"`
	LogLevel        string        `mapstructure:"log_level"`
	Endpoint        string        `mapstructure:"api_endpoint"`
	User            string        `mapstructure:"api_user"`
	Password        string        `mapstructure:"api_password"`
	UserAgent       string        `mapstructure:"user_agent"`
	SkipTLSVerify   bool          `mapstructure:"skip_tls_verify"`
	DryRun          bool          `mapstructure:"dry_run"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout_seconds"`
	AuditCollection string        `mapstructure:"audit_collection"`
	ConfigDir       string        `mapstructure:"config_dir"`
	JournalPath     string        `mapstructure:"journal_path"`
	BulkChunkSize   int           `mapstructure:"-"`
	LookupBatchSize int           `mapstructure:"-"`
	PageSize        int           `mapstructure:"-"`
}

// Default возвращает конфигурацию со значениями по умолчанию (без чтения окружения)
func Default() *Config {
	return &Config{
		Env:             defaultEnv,
		LogLevel:        defaultLogLevel,
		Endpoint:        defaultEndpoint,
		UserAgent:       defaultUserAgent,
		RequestTimeout:  defaultRequestTimeout * time.Second,
		AuditCollection: defaultAuditCollection,
		BulkChunkSize:   BulkChunkSize,
		LookupBatchSize: LookupBatchSize,
		PageSize:        PageSize,
	}
}

// Load читает .env и переменные окружения
func Load() (*Config, error) {
	// Определяем путь к .env файлу (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("API_ENDPOINT", defaultEndpoint)
	viper.SetDefault("USER_AGENT", defaultUserAgent)
	viper.SetDefault("SKIP_TLS_VERIFY", false)
	viper.SetDefault("DRY_RUN", false)
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", defaultRequestTimeout)
	viper.SetDefault("AUDIT_COLLECTION", defaultAuditCollection)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	journalPath := viper.GetString("JOURNAL_PATH")
	if journalPath == "" {
		journalPath = filepath.Join(configDir, defaultJournalFile)
	}

	config := &Config{
		Env:             viper.GetString("APP_ENV"),
		LogLevel:        viper.GetString("LOG_LEVEL"),
		Endpoint:        viper.GetString("API_ENDPOINT"),
		User:            viper.GetString("API_USER"),
		Password:        viper.GetString("API_PASSWORD"),
		UserAgent:       viper.GetString("USER_AGENT"),
		SkipTLSVerify:   viper.GetBool("SKIP_TLS_VERIFY"),
		DryRun:          viper.GetBool("DRY_RUN"),
		RequestTimeout:  time.Duration(viper.GetInt("REQUEST_TIMEOUT_SECONDS")) * time.Second,
		AuditCollection: viper.GetString("AUDIT_COLLECTION"),
		ConfigDir:       configDir,
		JournalPath:     journalPath,
		BulkChunkSize:   BulkChunkSize,
		LookupBatchSize: LookupBatchSize,
		PageSize:        PageSize,
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("api_endpoint не может быть пустым")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_endpoint должен быть абсолютным URL: %q", c.Endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_endpoint: неподдерживаемая схема %q", u.Scheme)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout_seconds должен быть положительным")
	}
	if c.BulkChunkSize <= 0 || c.LookupBatchSize <= 0 || c.PageSize <= 0 {
		return fmt.Errorf("размеры пакетов должны быть положительными")
	}
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")
	return nil
}

