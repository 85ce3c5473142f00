// Package cli provides common CLI initialization utilities shared by
// cmd/moneycoach and cmd/devtoken.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"moneycoach/internal/config"
	"moneycoach/internal/llm"
	"moneycoach/internal/log"
	"moneycoach/internal/services"
	"moneycoach/internal/sheets/google"
	"moneycoach/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the application logger from the configured level and
// format and installs it as the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// Bootstrap loads .env and the configuration, sets up logging and
// validates. It exits the process when the configuration is invalid.
func Bootstrap() (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitSQLite opens the repository and runs migrations.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// InitLLM returns the model client, or nil when no provider is configured.
func InitLLM(cfg *config.Config, logger *log.Logger) (*llm.Client, error) {
	if !cfg.LLMEnabled() {
		logger.Warn("LLM_API_KEY not set, AI features use fallbacks or report the provider as unavailable")
		return nil, nil
	}
	provider, err := llm.NewOpenAI(llm.OpenAIConfig{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Model provider configured", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModel)
	return llm.NewClient(provider, llm.ClientConfig{
		Timeout: cfg.LLMTimeout,
		Backoff: cfg.LLMRetryBackoff,
	}, logger), nil
}

// InitExporter returns the Google Sheets budget exporter, or nil when
// export is not configured. ctx must live as long as the process.
func InitExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (services.BudgetExporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Budget export disabled, no GOOGLE_SPREADSHEET_ID provided")
		return nil, nil
	}
	creds, err := cfg.ServiceAccountJSON()
	if err != nil {
		return nil, err
	}
	exporter, err := google.New(ctx, cfg.GoogleSpreadsheetID, creds, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Budget export to Google Sheets enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return exporter, nil
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
