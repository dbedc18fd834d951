package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	Version       string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// OpenAI-compatible provider for chat, embeddings, transcription,
	// vision and speech synthesis.
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	ChatModel           string
	EmbeddingModel      string
	TranscriptionModel  string
	VisionModel         string
	SpeechModel         string
	CollaboratorTimeout time.Duration

	// Evolution messaging transport.
	EvolutionBaseURL string
	EvolutionAPIKey  string

	// Shared secret for the companion reminder job.
	WorkerSecret string

	// Feature flags.
	RAGEnabled   bool
	VoiceEnabled bool

	HistoryLimit int
	SendDelayMin time.Duration
	SendDelayMax time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Version:       getEnv("APP_VERSION", "dev"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
		ChatModel:           getEnv("CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		TranscriptionModel:  getEnv("TRANSCRIPTION_MODEL", "whisper-1"),
		VisionModel:         getEnv("VISION_MODEL", "gpt-4o-mini"),
		SpeechModel:         getEnv("SPEECH_MODEL", "tts-1"),
		CollaboratorTimeout: getEnvAsDuration("COLLABORATOR_TIMEOUT", 30*time.Second),

		EvolutionBaseURL: strings.TrimRight(getEnv("EVOLUTION_BASE_URL", "http://localhost:8081"), "/"),
		EvolutionAPIKey:  getEnv("EVOLUTION_API_KEY", ""),

		WorkerSecret: getEnv("WORKER_SECRET", ""),

		RAGEnabled:   getEnvAsBool("RAG_ENABLED", true),
		VoiceEnabled: getEnvAsBool("VOICE_ENABLED", true),

		HistoryLimit: getEnvAsInt("HISTORY_LIMIT", 10),
		SendDelayMin: getEnvAsDuration("SEND_DELAY_MIN", 1500*time.Millisecond),
		SendDelayMax: getEnvAsDuration("SEND_DELAY_MAX", 3500*time.Millisecond),
	}
}

// Runtime is the per-turn view of configuration threaded through the
// pipeline. Tenant instances may override the transport API key.
type Runtime struct {
	TransportBaseURL string
	TransportAPIKey  string
	RAGEnabled       bool
	VoiceEnabled     bool
}

// RuntimeFor resolves the runtime settings for one turn. An empty override
// keeps the global transport key.
func (c *Config) RuntimeFor(apiKeyOverride string) Runtime {
	key := strings.TrimSpace(apiKeyOverride)
	if key == "" {
		key = c.EvolutionAPIKey
	}
	return Runtime{
		TransportBaseURL: c.EvolutionBaseURL,
		TransportAPIKey:  key,
		RAGEnabled:       c.RAGEnabled,
		VoiceEnabled:     c.VoiceEnabled,
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
