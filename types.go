package main

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"connsolver/internal/loader"
	"connsolver/internal/puzzle"
	"connsolver/internal/store"
)

type contextKey string

// App holds the server configuration and the live sessions.
type App struct {
	Sessions     map[string]*puzzle.Controller // Keyed by session cookie
	SessionMutex sync.RWMutex

	LimiterMap   map[string]*rate.Limiter
	LimiterMutex sync.Mutex

	Broker      puzzle.Broker
	Recommender string
	Store       store.Store
	Loader      *loader.FileLoader

	IsProduction   bool
	SessionTimeout time.Duration
	CookieMaxAge   time.Duration
	RateLimitRPS   int
	RateLimitBurst int
	MaxMistakes    int
	StartTime      time.Time
}

// Config is read from the environment at startup.
type Config struct {
	Port            string
	IsProduction    bool
	SessionTimeout  time.Duration
	CookieMaxAge    time.Duration
	CleanupInterval time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
	MaxMistakes     int
	PuzzleDir       string
	StoreDriver     string
	SessionDir      string
	SQLitePath      string
	Recommender     string
	OpenAIKey       string
	OpenAIBaseURL   string
	OpenAIModel     string
	EmbeddingModel  string
}
