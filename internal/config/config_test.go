package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MinLog != -50 || cfg.TopK != 5 || cfg.UserBias != 0 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "db_path: /tmp/from-file.db\nuser_bias: 4\ntop_k: 3\nmin_log: -20\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PINYIN_PREDICT_TOP_K", "9")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/from-file.db" || cfg.UserBias != 4 || cfg.MinLog != -20 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.TopK != 9 {
		t.Errorf("env should override file, got top_k %d", cfg.TopK)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PINYIN_PREDICT_USER_BIAS=7\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("PINYIN_PREDICT_USER_BIAS") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UserBias != 7 {
		t.Errorf("expected bias from .env, got %d", cfg.UserBias)
	}
}

func TestValidate(t *testing.T) {
	bad := []Config{
		{DBPath: "", MinLog: -1},
		{DBPath: "x", MinLog: 0},
		{DBPath: "x", MinLog: -1, UserBias: -1},
		{DBPath: "x", MinLog: -1, TopK: -1},
	}
	for _, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("expected %+v to be invalid", c)
		}
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}
