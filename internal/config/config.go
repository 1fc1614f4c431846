package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. TRACKER_AUTH_ACCESS_SECRET.
const EnvPrefix = "TRACKER"

// Config is the full service configuration.
type Config struct {
	Addr   string      `mapstructure:"addr"`
	DBPath string      `mapstructure:"db_path"`
	Auth   AuthConfig  `mapstructure:"auth"`
	Sweep  SweepConfig `mapstructure:"sweep"`
	Log    LogConfig   `mapstructure:"log"`
}

// AuthConfig controls tokens, cookies and the lockout policy.
type AuthConfig struct {
	AccessSecret    string        `mapstructure:"access_secret"`
	RefreshSecret   string        `mapstructure:"refresh_secret"`
	AccessTTL       time.Duration `mapstructure:"access_ttl"`
	RefreshTTL      time.Duration `mapstructure:"refresh_ttl"`
	MaxFailedLogins int           `mapstructure:"max_failed_logins"`
	LockoutWindow   time.Duration `mapstructure:"lockout_window"`
	BcryptCost      int           `mapstructure:"bcrypt_cost"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
}

// SweepConfig controls the expiry sweep.
type SweepConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:   ":8080",
		DBPath: "data/tracker.db",
		Auth: AuthConfig{
			AccessTTL:       15 * time.Minute,
			RefreshTTL:      240 * time.Hour,
			MaxFailedLogins: 5,
			LockoutWindow:   24 * time.Hour,
			BcryptCost:      bcrypt.DefaultCost,
			SecureCookies:   true,
		},
		Sweep: SweepConfig{Interval: time.Hour},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("addr", d.Addr)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("auth.access_secret", "")
	v.SetDefault("auth.refresh_secret", "")
	v.SetDefault("auth.access_ttl", d.Auth.AccessTTL)
	v.SetDefault("auth.refresh_ttl", d.Auth.RefreshTTL)
	v.SetDefault("auth.max_failed_logins", d.Auth.MaxFailedLogins)
	v.SetDefault("auth.lockout_window", d.Auth.LockoutWindow)
	v.SetDefault("auth.bcrypt_cost", d.Auth.BcryptCost)
	v.SetDefault("auth.secure_cookies", d.Auth.SecureCookies)
	v.SetDefault("sweep.interval", d.Sweep.Interval)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load merges defaults, the optional YAML file at path, TRACKER_* environment
// variables and any bound flags, in increasing precedence.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for key, name := range map[string]string{"addr": "addr", "db_path": "db"} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path must not be empty"))
	}
	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		errs = append(errs, errors.New("auth.access_secret and auth.refresh_secret must be set"))
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("auth token TTLs must be positive"))
	}
	if c.Auth.MaxFailedLogins <= 0 || c.Auth.LockoutWindow <= 0 {
		errs = append(errs, errors.New("auth lockout settings must be positive"))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Sweep.Interval <= 0 {
		errs = append(errs, errors.New("sweep.interval must be positive"))
	}
	return errors.Join(errs...)
}

// Logger builds the slog logger described by the log section.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// WriteDefault writes the default configuration as YAML to path. Secrets are
// left empty and must be filled in or provided through the environment.
func WriteDefault(path string) error {
	d := Default()
	doc := map[string]any{
		"addr":    d.Addr,
		"db_path": d.DBPath,
		"auth": map[string]any{
			"access_secret":     "",
			"refresh_secret":    "",
			"access_ttl":        d.Auth.AccessTTL.String(),
			"refresh_ttl":       d.Auth.RefreshTTL.String(),
			"max_failed_logins": d.Auth.MaxFailedLogins,
			"lockout_window":    d.Auth.LockoutWindow.String(),
			"bcrypt_cost":       d.Auth.BcryptCost,
			"secure_cookies":    d.Auth.SecureCookies,
		},
		"sweep": map[string]any{"interval": d.Sweep.Interval.String()},
		"log":   map[string]any{"level": d.Log.Level, "format": d.Log.Format},
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	header := "# tracker configuration\n# secrets may also come from TRACKER_AUTH_ACCESS_SECRET and TRACKER_AUTH_REFRESH_SECRET\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o600)
}
