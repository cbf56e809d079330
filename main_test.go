package main

import (
	"testing"
	"time"

	"connsolver/internal/puzzle"
	"connsolver/internal/recommend"
	"connsolver/internal/store"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "GIN_MODE", "ENV", "SESSION_TIMEOUT", "MAX_MISTAKES", "STORE_DRIVER", "RECOMMENDER"} {
		t.Setenv(key, "")
	}
	cfg := loadConfig()
	if cfg.Port != "8080" || cfg.IsProduction {
		t.Errorf("port/env = %q/%v", cfg.Port, cfg.IsProduction)
	}
	if cfg.SessionTimeout != 2*time.Hour || cfg.MaxMistakes != puzzle.DefaultMaxMistakes {
		t.Errorf("timeout/mistakes = %v/%d", cfg.SessionTimeout, cfg.MaxMistakes)
	}
	if cfg.StoreDriver != store.DriverFile || cfg.Recommender != recommend.NameSequential {
		t.Errorf("driver/recommender = %q/%q", cfg.StoreDriver, cfg.Recommender)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("MAX_MISTAKES", "0")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SESSION_TIMEOUT", "30m")
	cfg := loadConfig()
	if !cfg.IsProduction || cfg.MaxMistakes != 0 || cfg.StoreDriver != store.DriverSQLite || cfg.SessionTimeout != 30*time.Minute {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestBuildBrokerFallsBackWithoutKey(t *testing.T) {
	for _, engine := range []string{recommend.NameLLM, recommend.NameEmbedding} {
		broker, name := buildBroker(Config{Recommender: engine})
		if name != recommend.NameSequential {
			t.Errorf("%s without key built %q, want sequential", engine, name)
		}
		if _, ok := broker.(recommend.Sequential); !ok {
			t.Errorf("%s without key broker = %T", engine, broker)
		}
	}
}

func TestBuildBrokerWithKey(t *testing.T) {
	broker, name := buildBroker(Config{Recommender: recommend.NameLLM, OpenAIKey: "sk-test"})
	if name != recommend.NameLLM {
		t.Errorf("name = %q", name)
	}
	if _, ok := broker.(*recommend.Planner); !ok {
		t.Errorf("broker = %T, want *recommend.Planner", broker)
	}
}
