package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"
	"golang.org/x/time/rate"

	"connsolver/internal/loader"
	"connsolver/internal/puzzle"
	"connsolver/internal/recommend"
	"connsolver/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	setupLogging(cfg.IsProduction)
	logInfo("Starting connsolver in %s mode", map[bool]string{true: "production", false: "development"}[cfg.IsProduction])

	broker, engine := buildBroker(cfg)
	st, err := store.Open(cfg.StoreDriver,
		store.WithDir(cfg.SessionDir),
		store.WithDSN(cfg.SQLitePath),
		store.WithMaxAge(cfg.SessionTimeout))
	if err != nil {
		logFatal("Failed to open %s session store: %v", cfg.StoreDriver, err)
	}
	defer st.Close()
	logInfo("Using %s session store and %s recommender", cfg.StoreDriver, engine)

	if cfg.PuzzleDir != "" {
		if err := checkDir(cfg.PuzzleDir); err != nil {
			logWarn("Puzzle directory unusable: %v", err)
		}
	}

	app := newApp(cfg, broker, st)
	app.Recommender = engine

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(app)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.runSessionCleanup(ctx, cfg.CleanupInterval)

	startServer(router, cfg.Port)
}

// loadConfig reads the server configuration from the environment.
func loadConfig() Config {
	return Config{
		Port:            getEnvString("PORT", "8080"),
		IsProduction:    os.Getenv("GIN_MODE") == "release" || os.Getenv("ENV") == "production",
		SessionTimeout:  getEnvDuration("SESSION_TIMEOUT", 2*time.Hour),
		CookieMaxAge:    getEnvDuration("COOKIE_MAX_AGE", 2*time.Hour),
		CleanupInterval: getEnvDuration("CLEANUP_INTERVAL", 15*time.Minute),
		RateLimitRPS:    getEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 10),
		MaxMistakes:     getEnvInt("MAX_MISTAKES", puzzle.DefaultMaxMistakes),
		PuzzleDir:       getEnvString("PUZZLE_DIR", ""),
		StoreDriver:     getEnvString("STORE_DRIVER", store.DriverFile),
		SessionDir:      getEnvString("SESSION_DIR", store.DefaultDir),
		SQLitePath:      getEnvString("SQLITE_PATH", store.DefaultDSN),
		Recommender:     getEnvString("RECOMMENDER", recommend.NameSequential),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:     getEnvString("OPENAI_MODEL", recommend.DefaultChatModel),
		EmbeddingModel:  getEnvString("EMBEDDING_MODEL", recommend.DefaultEmbeddingModel),
	}
}

// setupLogging sends zerolog output to a console writer in development and
// plain JSON in production.
func setupLogging(production bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	if production {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)
}

// buildBroker returns the configured recommender. Engines that need OpenAI
// fall back to the sequential engine when no API key is set.
func buildBroker(cfg Config) (puzzle.Broker, string) {
	var client *recommend.Client
	if cfg.Recommender == recommend.NameLLM || cfg.Recommender == recommend.NameEmbedding {
		c, err := recommend.NewClient(
			recommend.WithAPIKey(cfg.OpenAIKey),
			recommend.WithBaseURL(cfg.OpenAIBaseURL),
			recommend.WithModel(cfg.OpenAIModel),
			recommend.WithEmbeddingModel(cfg.EmbeddingModel))
		if err != nil {
			logWarn("Recommender %s unavailable (%v), falling back to %s", cfg.Recommender, err, recommend.NameSequential)
			return recommend.Sequential{}, recommend.NameSequential
		}
		client = c
	}
	broker, err := recommend.Build(cfg.Recommender, client)
	if err != nil {
		logFatal("Failed to build recommender: %v", err)
	}
	return broker, cfg.Recommender
}

func newApp(cfg Config, broker puzzle.Broker, st store.Store) *App {
	return &App{
		Sessions:       make(map[string]*puzzle.Controller),
		LimiterMap:     make(map[string]*rate.Limiter),
		Broker:         broker,
		Recommender:    cfg.Recommender,
		Store:          st,
		Loader:         loader.New(cfg.PuzzleDir),
		IsProduction:   cfg.IsProduction,
		SessionTimeout: cfg.SessionTimeout,
		CookieMaxAge:   cfg.CookieMaxAge,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxMistakes:    cfg.MaxMistakes,
		StartTime:      time.Now(),
	}
}

// setupRouter registers middleware and routes. Mutating routes are rate limited.
func setupRouter(app *App) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware(), requestLogger())
	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression))
	router.Use(cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	}))
	router.MaxMultipartMemory = 1 << 20

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logWarn("Failed to set trusted proxies: %v", err)
	}

	limited := app.rateLimitMiddleware()
	router.POST(RouteSetup, limited, app.setupHandler)
	router.GET(RouteRecommend, limited, app.recommendHandler)
	router.POST(RouteFeedback, limited, app.feedbackHandler)
	router.POST(RouteOverride, limited, app.overrideHandler)
	router.POST(RouteTerminate, limited, app.terminateHandler)
	router.GET(RouteState, app.stateHandler)
	router.GET(RouteHealthz, app.healthzHandler)
	return router
}

func startServer(router *gin.Engine, port string) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second, // recommendations may wait on a model API
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		logInfo("Shutdown signal received, shutting down server gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	logInfo("Server starting on http://localhost:%s", port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logFatal("Server failed to start: %v", err)
	}
	<-idleConnsClosed
	logInfo("Server shutdown complete")
}
