package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
	"golang.org/x/term"

	"parlsync/cmd/client/cmd/types"
	"parlsync/internal/app/client"
	"parlsync/internal/app/client/config"
	"parlsync/internal/utils/logger"
)

var (
	cfgFile  string
	cfg      *config.Config
	log      *slog.Logger
	app      *client.App
	debug    bool
	dryRun   bool
	endpoint string
)

var rootCmd = &cobra.Command{
	Use:   "parlsync",
	Short: "ParlSync - клиент синхронизации данных с хранилищем ресурсов",
	Long: `ParlSync загружает записи в хранилище ресурсов: создает отсутствующие,
обновляет изменившиеся и откатывает созданное при ошибке.

Параметры подключения берутся из окружения (API_ENDPOINT, API_USER,
API_PASSWORD) или из конфигурационного файла.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Флаги командной строки важнее окружения
	if endpoint != "" {
		cfg.Endpoint = endpoint
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
		}
	}
	if dryRun {
		cfg.DryRun = true
	}
	if debug {
		cfg.LogLevel = "debug"
	}

	log = logger.WithLevel(cfg.Env, cfg.LogLevel)

	if cfg.User != "" && cfg.Password == "" {
		if cfg.Password, err = readPassword(cfg.User); err != nil {
			return err
		}
	}

	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, types.ClientAppKey, app))

	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	return app.Close()
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Load()
	}

	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return config.Load()
}

// readPassword спрашивает пароль, если он не задан в окружении
func readPassword(user string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("не задан API_PASSWORD для пользователя %s", user)
	}

	fmt.Fprintf(os.Stderr, "Пароль для %s: ", user)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения пароля: %w", err)
	}
	return string(password), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "только чтение: запросы на запись не отправляются")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "URL хранилища (переопределяет API_ENDPOINT)")

	// Команды подключаются в register.go
}
