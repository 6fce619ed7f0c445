// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the tunables for the room engine and sweeper. Values come from
// the environment with defaults matching a small deployment.
type Config struct {
	CodeLen int

	// Timeout1v1 and Timeout3v3 bound how long a WAITING room may sit
	// unfilled before the sweeper reclaims it.
	Timeout1v1 time.Duration
	Timeout3v3 time.Duration

	SweepInterval time.Duration
	SweepBatch    int
}

// Load reads room configuration from the environment.
func Load() Config {
	return Config{
		CodeLen:       GetEnvInt("ROOM_CODE_LEN", 6),
		Timeout1v1:    time.Duration(GetEnvInt("ROOM_1V1_TIMEOUT_SEC", 300)) * time.Second,
		Timeout3v3:    time.Duration(GetEnvInt("ROOM_3V3_TIMEOUT_SEC", 60)) * time.Second,
		SweepInterval: time.Duration(GetEnvInt("SWEEP_INTERVAL_MS", 1000)) * time.Millisecond,
		SweepBatch:    GetEnvInt("SWEEP_BATCH", 50),
	}
}

// GetEnv reads an environment variable or returns a default value.
func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt parses an environment variable as integer, else a default value.
func GetEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
