// Package config loads runtime settings from a YAML file, a .env file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/pinyin-predict/internal/decoder"
	"github.com/rcliao/pinyin-predict/internal/lexicon"
)

const envPrefix = "PINYIN_PREDICT_"

// Config holds every tunable of the predictor.
type Config struct {
	DBPath string `yaml:"db_path"`
	// UserBias is added to any transition the user has reinforced.
	UserBias   int64   `yaml:"user_bias"`
	MinLog     float64 `yaml:"min_log"`
	TopK       int     `yaml:"top_k"`
	CacheBytes int     `yaml:"cache_bytes"`
	Addr       string  `yaml:"addr"`
}

// Default returns the built-in settings.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DBPath:     filepath.Join(home, ".pinyin-predict", "counts.db"),
		UserBias:   0,
		MinLog:     decoder.DefaultMinLog,
		TopK:       5,
		CacheBytes: lexicon.DefaultMaxBytes,
		Addr:       ":8080",
	}
}

// Load builds a Config. path may be empty, in which case
// $PINYIN_PREDICT_CONFIG is consulted; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: ignoring .env: %v", err)
	}

	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg.DBPath = getEnv("DB", cfg.DBPath)
	cfg.UserBias = getEnvAsInt64("USER_BIAS", cfg.UserBias)
	cfg.MinLog = getEnvAsFloat("MIN_LOG", cfg.MinLog)
	cfg.TopK = int(getEnvAsInt64("TOP_K", int64(cfg.TopK)))
	cfg.CacheBytes = int(getEnvAsInt64("CACHE_BYTES", int64(cfg.CacheBytes)))
	cfg.Addr = getEnv("ADDR", cfg.Addr)

	return cfg, cfg.Validate()
}

// Validate checks ranges that would otherwise break decoding.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("config: db_path is required")
	}
	if c.UserBias < 0 {
		return fmt.Errorf("config: user_bias must be non-negative, got %d", c.UserBias)
	}
	if c.MinLog >= 0 {
		return fmt.Errorf("config: min_log must be negative, got %g", c.MinLog)
	}
	if c.TopK < 0 {
		return fmt.Errorf("config: top_k must be non-negative, got %d", c.TopK)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(envPrefix + key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, err := strconv.ParseInt(getEnv(key, ""), 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}
