// Package cli implements the pinyin-predict CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/rcliao/pinyin-predict/internal/config"
	"github.com/rcliao/pinyin-predict/internal/predict"
	"github.com/rcliao/pinyin-predict/internal/store"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	configPath string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "pinyin-predict",
	Short: "Trainable pinyin to hanzi phrase prediction",
	Long:  "Predict Chinese phrases from pinyin readings with a bigram model that learns from what you pick. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $PINYIN_PREDICT_DB or ~/.pinyin-predict/counts.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: $PINYIN_PREDICT_CONFIG)")
}

// loadConfig resolves settings; --db wins over every other source.
func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg
}

func openStore(cfg config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DBPath)
}

func newService(s *store.SQLiteStore, cfg config.Config) *predict.Service {
	return predict.NewService(s, predict.Options{
		UserBias:   cfg.UserBias,
		MinLog:     cfg.MinLog,
		CacheBytes: cfg.CacheBytes,
	})
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
