// Package config loads runtime settings from an optional .env file, an
// optional YAML file and the environment, in that order of increasing
// precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config holds every runtime setting.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	Store              string `yaml:"store"`
	BoltPath           string `yaml:"bolt_path"`
	BoltMaxRecordBytes int    `yaml:"bolt_max_record_bytes"`
	DatabaseURL        string `yaml:"database_url"`
	MongoURI           string `yaml:"mongo_uri"`
	MongoDB            string `yaml:"mongo_db"`

	Notifier     string   `yaml:"notifier"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
	RedisAddr    string   `yaml:"redis_addr"`
	RedisChannel string   `yaml:"redis_channel"`

	JWTSecret string `yaml:"jwt_secret"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func defaults() Config {
	return Config{
		HTTPAddr:           ":8080",
		Store:              "bolt",
		BoltPath:           "marketplace.db",
		BoltMaxRecordBytes: 5 << 20,
		MongoDB:            "marketplace",
		Notifier:           "local",
		KafkaBrokers:       []string{"localhost:9092"},
		KafkaTopic:         "marketplace.signals",
		RedisAddr:          "localhost:6379",
		RedisChannel:       "marketplace.signals",
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Load builds a Config. A missing .env or CONFIG_FILE is not an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("HTTP_ADDR", &c.HTTPAddr)
	str("STORE", &c.Store)
	str("BOLT_PATH", &c.BoltPath)
	str("DATABASE_URL", &c.DatabaseURL)
	str("MONGO_URI", &c.MongoURI)
	str("MONGO_DB", &c.MongoDB)
	str("NOTIFIER", &c.Notifier)
	str("KAFKA_TOPIC", &c.KafkaTopic)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_CHANNEL", &c.RedisChannel)
	str("JWT_SECRET", &c.JWTSecret)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv("BOLT_MAX_RECORD_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BOLT_MAX_RECORD_BYTES %q: %w", v, err)
		}
		c.BoltMaxRecordBytes = n
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects unknown backends and missing connection settings for the
// chosen ones.
func (c Config) Validate() error {
	switch c.Store {
	case "memory":
	case "bolt":
		if c.BoltPath == "" {
			return errors.New("BOLT_PATH is required for the bolt store")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the mongo store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	switch c.Notifier {
	case "local":
	case "kafka":
		if len(c.KafkaBrokers) == 0 || c.KafkaTopic == "" {
			return errors.New("KAFKA_BROKERS and KAFKA_TOPIC are required for the kafka notifier")
		}
	case "redis":
		if c.RedisAddr == "" || c.RedisChannel == "" {
			return errors.New("REDIS_ADDR and REDIS_CHANNEL are required for the redis notifier")
		}
	default:
		return fmt.Errorf("unknown notifier %q", c.Notifier)
	}

	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
