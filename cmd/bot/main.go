package main

import (
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/savelyev/relay-bot/internal/ai"
	"github.com/savelyev/relay-bot/internal/bot"
	"github.com/savelyev/relay-bot/internal/history"
	"github.com/savelyev/relay-bot/internal/persona"
	"github.com/savelyev/relay-bot/internal/storage"
	"github.com/savelyev/relay-bot/internal/usage"
	"github.com/savelyev/relay-bot/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	if cfg.Debug {
		devLogger, err := zap.NewDevelopment()
		if err == nil {
			logger = devLogger
		}
	}

	// Initialize storage
	histStore, personaStore, usageStore := buildStores(cfg, logger)
	defer histStore.Close()
	defer personaStore.Close()
	defer usageStore.Close()

	hist := history.New(histStore, cfg.History.Limit, cfg.History.BotPrefix, logger)
	personas := persona.New(personaStore, cfg.Persona.Default, logger)
	ledger := usage.New(usageStore, logger)

	// Initialize the active AI provider; the bot runs without AI engagement
	// when none is configured.
	provider := buildProvider(cfg, logger)

	// Initialize the Telegram API client
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal("Failed to create Telegram API client", zap.Error(err))
	}

	b := bot.New(api, hist, personas, ledger, provider, cfg, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", b.HandleWebhook)
	mux.HandleFunc("/set-webhook", b.HandleSetWebhook)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "Telegram bot is ready. Use GET /set-webhook to register the webhook.")
	})

	logger.Info("Starting webhook server", zap.String("addr", cfg.Server.ListenAddr))
	if err := http.ListenAndServe(cfg.Server.ListenAddr, mux); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

func buildStores(cfg *config.Config, logger *zap.Logger) (storage.Store, storage.Store, storage.Store) {
	switch cfg.Storage.Backend {
	case "memory":
		logger.Info("Using in-memory storage")
		store := storage.NewMemoryStore()
		return store, store, store
	case "postgres":
		logger.Info("Using PostgreSQL storage")
		store, err := storage.NewPostgresStore(storage.DatabaseConfig{
			Host:     cfg.Storage.Database.Host,
			Port:     cfg.Storage.Database.Port,
			User:     cfg.Storage.Database.User,
			Password: cfg.Storage.Database.Password,
			DBName:   cfg.Storage.Database.DBName,
			SSLMode:  cfg.Storage.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
		return store, store, store
	default:
		logger.Info("Using file storage")
		histStore, err := storage.NewFileStore(cfg.History.StoragePath, logger)
		if err != nil {
			logger.Fatal("Failed to initialize history storage", zap.Error(err))
		}
		personaStore, err := storage.NewFileStore(cfg.Persona.StoragePath, logger)
		if err != nil {
			logger.Fatal("Failed to initialize persona storage", zap.Error(err))
		}
		usageStore, err := storage.NewFileStore(cfg.Usage.StoragePath, logger)
		if err != nil {
			logger.Fatal("Failed to initialize usage storage", zap.Error(err))
		}
		return histStore, personaStore, usageStore
	}
}

func buildProvider(cfg *config.Config, logger *zap.Logger) ai.Provider {
	switch {
	case cfg.AI.Provider == "gemini" && cfg.Gemini.APIKey != "":
		logger.Info("AI provider: Gemini initialized", zap.String("model", cfg.Gemini.Model))
		httpClient := &http.Client{Timeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second}
		return ai.NewGeminiProvider(cfg.Gemini.APIKey, cfg.Gemini.APIURL, cfg.Gemini.Model, httpClient, logger)
	case cfg.AI.Provider == "openai" && cfg.OpenAI.APIKey != "":
		logger.Info("AI provider: OpenAI initialized", zap.String("model", cfg.OpenAI.Model))
		return ai.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, logger)
	default:
		logger.Error("No AI provider configured or API key missing; the bot will not generate responses")
		return nil
	}
}
