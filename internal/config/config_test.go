package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var envKeys = []string{
	"CONFIG_FILE", "HTTP_ADDR", "STORE", "BOLT_PATH", "BOLT_MAX_RECORD_BYTES",
	"DATABASE_URL", "MONGO_URI", "MONGO_DB", "NOTIFIER", "KAFKA_BROKERS",
	"KAFKA_TOPIC", "REDIS_ADDR", "REDIS_CHANNEL", "JWT_SECRET", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.Store != "bolt" || cfg.Notifier != "local" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.BoltMaxRecordBytes != 5<<20 {
		t.Fatalf("expected 5 MiB record limit, got %d", cfg.BoltMaxRecordBytes)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/marketplace")
	t.Setenv("NOTIFIER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("BOLT_MAX_RECORD_BYTES", "1024")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store != "postgres" || cfg.Notifier != "kafka" {
		t.Fatalf("expected env to win, got %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %q", cfg.KafkaBrokers)
	}
	if cfg.BoltMaxRecordBytes != 1024 {
		t.Fatalf("expected 1024, got %d", cfg.BoltMaxRecordBytes)
	}
	lvl, err := cfg.SlogLevel()
	if err != nil || lvl != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v (%v)", lvl, err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "store: memory\nhttp_addr: \":9090\"\njwt_secret: from-file\nlog_format: json\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_ADDR", ":7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store != "memory" || cfg.JWTSecret != "from-file" || cfg.LogFormat != "json" {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Fatalf("expected env to override file, got %s", cfg.HTTPAddr)
	}
}

func TestLoadBadRecordLimit(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("BOLT_MAX_RECORD_BYTES", "lots")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric BOLT_MAX_RECORD_BYTES")
	}
}

func TestValidate(t *testing.T) {
	valid := defaults()
	valid.JWTSecret = "s3cret"

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"unknown store", func(c *Config) { c.Store = "sqlite" }, "unknown store"},
		{"postgres without dsn", func(c *Config) { c.Store = "postgres" }, "DATABASE_URL"},
		{"mongo without uri", func(c *Config) { c.Store = "mongo" }, "MONGO_URI"},
		{"unknown notifier", func(c *Config) { c.Notifier = "smoke" }, "unknown notifier"},
		{"kafka without brokers", func(c *Config) { c.Notifier = "kafka"; c.KafkaBrokers = nil }, "KAFKA_BROKERS"},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "unknown log format"},
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("expected defaults plus secret to validate, got %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
