// Package config loads the indexer's configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configuration carries everything the server binary needs.
type Configuration struct {
	Host           string
	Port           int
	Threads        int
	BatchSize      int
	BlockFilesPath string
	StoreFilePath  string
	Confirmations  int
	UpdateInterval time.Duration

	RPCHost     string
	RPCPort     int
	RPCUser     string
	RPCPassword string

	// 0 disables the metrics listener
	MetricsPort int
	// empty disables the RPC transaction cache
	RPCCachePath string
}

func envString(key string, required bool, fallback string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	if required {
		return "", fmt.Errorf("missing %s", key)
	}
	return fallback, nil
}

func envInt(key string, required bool, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		if required {
			return 0, fmt.Errorf("missing %s", key)
		}
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return value, nil
}

// Load reads the environment. Call godotenv.Load first to pick up .env files.
func Load() (*Configuration, error) {
	cfg := &Configuration{}
	var err error
	if cfg.Host, err = envString("HOST", false, "127.0.0.1"); err != nil {
		return nil, err
	}
	if cfg.Port, err = envInt("PORT", false, 8000); err != nil {
		return nil, err
	}
	if cfg.Threads, err = envInt("THREADS", true, 0); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = envInt("BATCH_SIZE", true, 0); err != nil {
		return nil, err
	}
	if cfg.BlockFilesPath, err = envString("BLOCK_FILES_PATH", true, ""); err != nil {
		return nil, err
	}
	if cfg.StoreFilePath, err = envString("STORE_FILE_PATH", true, ""); err != nil {
		return nil, err
	}
	if cfg.Confirmations, err = envInt("CONFIRMATIONS", false, 6); err != nil {
		return nil, err
	}
	intervalMs, err := envInt("UPDATE_INTERVAL", false, 1000)
	if err != nil {
		return nil, err
	}
	cfg.UpdateInterval = time.Duration(intervalMs) * time.Millisecond
	if cfg.RPCHost, err = envString("RPC_SERVER_HOST", true, ""); err != nil {
		return nil, err
	}
	if cfg.RPCPort, err = envInt("RPC_SERVER_PORT", true, 0); err != nil {
		return nil, err
	}
	if cfg.RPCUser, err = envString("RPC_SERVER_USER", true, ""); err != nil {
		return nil, err
	}
	if cfg.RPCPassword, err = envString("RPC_SERVER_PASSWORD", true, ""); err != nil {
		return nil, err
	}
	if cfg.MetricsPort, err = envInt("METRICS_PORT", false, 0); err != nil {
		return nil, err
	}
	if cfg.RPCCachePath, err = envString("RPC_CACHE_PATH", false, ""); err != nil {
		return nil, err
	}

	if cfg.Confirmations < 1 {
		return nil, fmt.Errorf("CONFIRMATIONS must be at least 1")
	}
	if cfg.Threads < 1 {
		return nil, fmt.Errorf("THREADS must be at least 1")
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("BATCH_SIZE must be at least 1")
	}
	return cfg, nil
}
