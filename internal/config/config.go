package config

import (
	"os"
	"strconv"
	"time"

	"github.com/asgardlabs/giru/internal/secrets"
)

type Config struct {
	Addr     string
	LogLevel string

	// One credential per provider. Ollama needs none, only a URL.
	GoogleAPIKey     string
	AnthropicAPIKey  string
	OpenAIAPIKey     string
	GroqAPIKey       string
	TogetherAPIKey   string
	OpenRouterAPIKey string
	OllamaBaseURL    string

	DatabaseURL         string
	RedisURL            string
	ActivityChannel     string
	AWSRegion           string
	SNSTopicArn         string
	UsageQueueURL       string
	ProviderSecretsName string
	OTLPEndpoint        string

	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Addr:     getEnv("ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GoogleAPIKey:     getEnvAny("GOOGLE_API_KEY", "GEMINI_API_KEY"),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		GroqAPIKey:       getEnv("GROQ_API_KEY", ""),
		TogetherAPIKey:   getEnv("TOGETHER_API_KEY", ""),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		OllamaBaseURL:    getEnv("OLLAMA_URL", "http://localhost:11434"),

		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		ActivityChannel:     getEnv("ACTIVITY_CHANNEL", "giru:activity"),
		AWSRegion:           getEnv("AWS_REGION", ""),
		SNSTopicArn:         getEnv("SNS_TOPIC_ARN", ""),
		UsageQueueURL:       getEnv("USAGE_QUEUE_URL", ""),
		ProviderSecretsName: getEnv("PROVIDER_SECRETS_NAME", ""),
		OTLPEndpoint:        getEnv("OTLP_ENDPOINT", ""),

		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	return cfg, nil
}

// ApplyProviderKeys fills credentials resolved from a secret store.
// Env values win only where the secret leaves a field empty.
func (c *Config) ApplyProviderKeys(keys secrets.ProviderKeys) {
	if keys.Google != "" {
		c.GoogleAPIKey = keys.Google
	}
	if keys.Anthropic != "" {
		c.AnthropicAPIKey = keys.Anthropic
	}
	if keys.OpenAI != "" {
		c.OpenAIAPIKey = keys.OpenAI
	}
	if keys.Groq != "" {
		c.GroqAPIKey = keys.Groq
	}
	if keys.Together != "" {
		c.TogetherAPIKey = keys.Together
	}
	if keys.OpenRouter != "" {
		c.OpenRouterAPIKey = keys.OpenRouter
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAny(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
