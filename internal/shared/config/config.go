package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	AnalysisModeInline = "inline"
	AnalysisModeByID   = "by-id"

	LLMProviderCanned = "canned"
	LLMProviderOpenAI = "openai"
)

// Config holds application configuration for the gallery client and the dev backend.
type Config struct {
	Env      string `env:"ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE" envDefault:"gallery.log"`

	// Client
	BackendURL        string        `env:"BACKEND_URL" envDefault:"http://localhost:5000"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	AnalyzeTimeout    time.Duration `env:"ANALYZE_TIMEOUT" envDefault:"120s"`
	RequestRPS        float64       `env:"REQUEST_RPS" envDefault:"10"`
	AnalysisMode      string        `env:"ANALYSIS_MODE" envDefault:"inline"`
	AutoplayAudio     bool          `env:"AUTOPLAY_AUDIO" envDefault:"false"`
	AudioPlayer       string        `env:"AUDIO_PLAYER"`
	SlideshowInterval time.Duration `env:"SLIDESHOW_INTERVAL" envDefault:"5s"`

	// Dev backend
	Port            string        `env:"PORT" envDefault:"5000"`
	LocalStoreDir   string        `env:"LOCAL_STORE_DIR" envDefault:"./data"`
	CORSAllowOrigin []string      `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	LLMProvider     string        `env:"LLM_PROVIDER" envDefault:"canned"`
	LLMModel        string        `env:"LLM_MODEL" envDefault:"gpt-4.1"`
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY"`
	OpenAITimeout   time.Duration `env:"OPENAI_TIMEOUT" envDefault:"120s"`
	TTSModel        string        `env:"TTS_MODEL" envDefault:"tts-1"`
	TTSVoice        string        `env:"TTS_VOICE" envDefault:"alloy"`
}

// Load reads configuration from the environment, after a best-effort .env load.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.AnalysisMode = normalizeAnalysisMode(cfg.AnalysisMode)
	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/")
	cfg.CORSAllowOrigin = splitAndTrim(cfg.CORSAllowOrigin)
	cfg.LLMProvider = normalizeProvider(cfg.LLMProvider)
	if cfg.SlideshowInterval <= 0 {
		cfg.SlideshowInterval = 5 * time.Second
	}
	return cfg, nil
}

func splitAndTrim(raw []string) []string {
	var out []string
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case LLMProviderOpenAI:
		return LLMProviderOpenAI
	default:
		return LLMProviderCanned
	}
}

func normalizeAnalysisMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "by-id", "byid", "id", "server":
		return AnalysisModeByID
	default:
		return AnalysisModeInline
	}
}
