package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("THREADS", "4")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BLOCK_FILES_PATH", "/blocks")
	t.Setenv("STORE_FILE_PATH", "/store.bin")
	t.Setenv("RPC_SERVER_HOST", "localhost")
	t.Setenv("RPC_SERVER_PORT", "8332")
	t.Setenv("RPC_SERVER_USER", "user")
	t.Setenv("RPC_SERVER_PASSWORD", "pass")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Host != "127.0.0.1" || cfg.Port != 8000 {
		t.Errorf("host defaults: %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.Confirmations != 6 {
		t.Errorf("confirmations default = %d", cfg.Confirmations)
	}
	if cfg.UpdateInterval != time.Second {
		t.Errorf("update interval default = %v", cfg.UpdateInterval)
	}
	if cfg.Threads != 4 || cfg.BatchSize != 100 {
		t.Errorf("threads/batch = %d/%d", cfg.Threads, cfg.BatchSize)
	}
	if cfg.MetricsPort != 0 || cfg.RPCCachePath != "" {
		t.Errorf("optional extras should default off")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("THREADS", "")
	if _, err := Load(); err == nil {
		t.Fatal("missing THREADS accepted")
	}
}

func TestLoadInvalidNumber(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "eight")
	if _, err := Load(); err == nil {
		t.Fatal("invalid PORT accepted")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CONFIRMATIONS", "3")
	t.Setenv("UPDATE_INTERVAL", "250")
	t.Setenv("METRICS_PORT", "9090")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Confirmations != 3 || cfg.UpdateInterval != 250*time.Millisecond || cfg.MetricsPort != 9090 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}
