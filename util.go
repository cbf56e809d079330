package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// envValue parses the variable key, keeping fallback when it is unset, empty
// or malformed.
func envValue[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Str("value", raw).Msgf("malformed setting, using %v", fallback)
		return fallback
	}
	return v
}

func getEnvString(key, fallback string) string {
	return envValue(key, fallback, func(s string) (string, error) { return s, nil })
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	return envValue(key, fallback, time.ParseDuration)
}

func getEnvInt(key string, fallback int) int {
	return envValue(key, fallback, strconv.Atoi)
}

// checkDir returns an error unless path is an existing directory.
func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// formatUptime renders d to the second, e.g. "1h1m5s".
func formatUptime(d time.Duration) string {
	return d.Truncate(time.Second).String()
}

// countOf renders n with noun, pluralized: "1 session", "3 sessions".
func countOf(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func logInfo(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func logWarn(format string, v ...any) {
	log.Warn().Msgf(format, v...)
}

// logFatal logs and exits.
func logFatal(format string, v ...any) {
	log.Fatal().Msgf(format, v...)
}
