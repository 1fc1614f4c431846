package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.DBPath != "data/tracker.db" {
		t.Errorf("addr/db = %q/%q", cfg.Addr, cfg.DBPath)
	}
	if cfg.Sweep.Interval != time.Hour {
		t.Errorf("sweep interval = %v, want 1h", cfg.Sweep.Interval)
	}
	if cfg.Auth.MaxFailedLogins != 5 || cfg.Auth.LockoutWindow != 24*time.Hour {
		t.Errorf("lockout = %d/%v", cfg.Auth.MaxFailedLogins, cfg.Auth.LockoutWindow)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted empty secrets")
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "tracker.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.Auth.AccessTTL != want.Auth.AccessTTL || cfg.Auth.RefreshTTL != want.Auth.RefreshTTL {
		t.Errorf("ttl = %v/%v", cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	}
	if cfg.Sweep.Interval != want.Sweep.Interval || !cfg.Auth.SecureCookies {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestFileEnvAndFlagPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	content := `addr: ":9000"
db_path: /tmp/from-file.db
auth:
  access_secret: file-access
  refresh_secret: file-refresh
sweep:
  interval: 30m
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TRACKER_AUTH_ACCESS_SECRET", "env-access")
	t.Setenv("TRACKER_SWEEP_INTERVAL", "5m")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", ":8080", "")
	flags.String("db", "data/tracker.db", "")
	if err := flags.Parse([]string{"--addr", ":7000"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Errorf("addr = %q, want flag value", cfg.Addr)
	}
	if cfg.DBPath != "/tmp/from-file.db" {
		t.Errorf("db_path = %q, want file value", cfg.DBPath)
	}
	if cfg.Auth.AccessSecret != "env-access" || cfg.Auth.RefreshSecret != "file-refresh" {
		t.Errorf("secrets = %q/%q", cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret)
	}
	if cfg.Sweep.Interval != 5*time.Minute {
		t.Errorf("interval = %v, want 5m", cfg.Sweep.Interval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Auth.AccessSecret = "a"
	cfg.Auth.RefreshSecret = "r"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate(defaults+secrets): %v", err)
	}

	cfg.Sweep.Interval = 0
	cfg.Auth.BcryptCost = 99
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted zero interval and bad cost")
	}
}

func TestMissingConfigFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Fatal("Load accepted missing file")
	}
}
