package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	AI        AIConfig        `mapstructure:"ai"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	History   HistoryConfig   `mapstructure:"history"`
	Persona   PersonaConfig   `mapstructure:"persona"`
	Usage     UsageConfig     `mapstructure:"usage"`
	Proactive ProactiveConfig `mapstructure:"proactive"`
	Keywords  []string        `mapstructure:"keywords"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
	Debug     bool            `mapstructure:"debug"`
}

type TelegramConfig struct {
	Token                 string `mapstructure:"token"`
	BotUsername           string `mapstructure:"bot_username"`
	WebhookURL            string `mapstructure:"webhook_url"`
	RespondToChannelPosts bool   `mapstructure:"respond_to_channel_posts"`
	FallbackMessage       string `mapstructure:"fallback_message"`
}

type AIConfig struct {
	Provider       string `mapstructure:"provider"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	APIURL string `mapstructure:"api_url"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type HistoryConfig struct {
	Limit       int    `mapstructure:"limit"`
	BotPrefix   string `mapstructure:"bot_prefix"`
	StoragePath string `mapstructure:"storage_path"`
}

type PersonaConfig struct {
	Default     string `mapstructure:"default"`
	StoragePath string `mapstructure:"storage_path"`
}

type UsageConfig struct {
	StoragePath string `mapstructure:"storage_path"`
}

type ProactiveConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Threshold      int    `mapstructure:"threshold"`
	Persona        string `mapstructure:"persona"`
	PromptTemplate string `mapstructure:"prompt_template"`
}

type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	Database DatabaseConfig `mapstructure:"database"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.timeout_seconds", 60)
	v.SetDefault("gemini.api_url", "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent")
	v.SetDefault("gemini.model", "gemini-pro")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4")
	v.SetDefault("history.limit", 15)
	v.SetDefault("history.bot_prefix", "Bot: ")
	v.SetDefault("history.storage_path", "data/history")
	v.SetDefault("persona.default", "You are a friendly and very helpful AI assistant.")
	v.SetDefault("persona.storage_path", "data/personas")
	v.SetDefault("usage.storage_path", "data/token_usage")
	v.SetDefault("proactive.enabled", false)
	v.SetDefault("proactive.threshold", 10)
	v.SetDefault("proactive.prompt_template", "Recent messages in the chat:\n%s\n\nYour task: read the latest messages carefully and join the ongoing discussion politely, briefly and on topic. Make a relevant comment or ask a clarifying question. Do not introduce yourself unless necessary.")
	v.SetDefault("telegram.fallback_message", "Sorry, I cannot generate a response right now.")
	v.SetDefault("telegram.respond_to_channel_posts", false)
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.database.port", 5432)
	v.SetDefault("storage.database.host", "localhost")
	v.SetDefault("storage.database.user", "postgres")
	v.SetDefault("storage.database.sslmode", "disable")
	v.SetDefault("server.listen_addr", ":8080")

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Storage.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	if apiKey := v.GetString("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}

	return &config, nil
}
