package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"habit-gallery/internal/devbackend"
	"habit-gallery/internal/llm"
	openai "habit-gallery/internal/llm/openai"
	"habit-gallery/internal/services/health"
	"habit-gallery/internal/shared/config"
	"habit-gallery/internal/shared/metrics"
	"habit-gallery/internal/shared/server/middleware"
	"habit-gallery/internal/shared/server/respond"
	localstore "habit-gallery/internal/shared/storage/object/local"
	"habit-gallery/internal/shared/telemetry"
)

const (
	rateGroupDefault = "DEFAULT"
	rateGroupAnalyze = "ANALYZE"
	rateGroupUpload  = "UPLOAD"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		metrics.Middleware(),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
			Rules: map[string]middleware.RateLimitRule{
				rateGroupAnalyze: {Rate: 0.5, Burst: 5},
				rateGroupUpload:  {Rate: 0.2, Burst: 3},
			},
		}),
	)

	// Dependencies
	analyzer, speaker, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}
	svc := &devbackend.Service{
		Repo:     devbackend.NewMemoryRepo(),
		Store:    localstore.New(cfg.LocalStoreDir),
		Analyzer: llm.WithRetry(analyzer),
		Speaker:  speaker,
	}
	handler := devbackend.NewHandler(svc)
	healthSvc := health.NewService(cfg.LocalStoreDir, cfg.LLMProvider)

	r.GET("/health", func(c *gin.Context) {
		st := healthSvc.Status()
		status := http.StatusOK
		if st["ok"] != true {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, st)
	})
	r.GET("/metrics", metrics.Handler())
	handler.RegisterRoutes(r)

	return r, nil
}

func buildLLM(cfg config.Config) (llm.Analyzer, llm.Speaker, error) {
	if cfg.LLMProvider != config.LLMProviderOpenAI {
		telemetry.Info("llm.provider", map[string]any{"provider": config.LLMProviderCanned})
		return llm.Canned{}, llm.Canned{}, nil
	}
	client, err := openai.NewClient(openai.Options{
		APIKey:   cfg.OpenAIAPIKey,
		Model:    cfg.LLMModel,
		TTSModel: cfg.TTSModel,
		TTSVoice: cfg.TTSVoice,
		Timeout:  cfg.OpenAITimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	telemetry.Info("llm.provider", map[string]any{"provider": config.LLMProviderOpenAI, "model": cfg.LLMModel})
	return client, client, nil
}

func rateGroupFor(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return rateGroupDefault
	}
	switch c.FullPath() {
	case "/analyze", "/analyze/:id":
		return rateGroupAnalyze
	case "/upload":
		return rateGroupUpload
	}
	return rateGroupDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":5000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
