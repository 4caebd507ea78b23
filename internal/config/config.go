// Package config loads estibot settings from defaults, an optional TOML file
// and ESTIBOT_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/alexanderramin/estibot/internal/llm"
	"github.com/joho/godotenv"
)

type Config struct {
	// DB is the SQLite database path. ":memory:" keeps everything in process.
	DB string `toml:"db"`
	// LocalUser is the external id the terminal chat acts as.
	LocalUser       string        `toml:"local_user"`
	SessionTTL      time.Duration `toml:"session_ttl"`
	DedupeTTL       time.Duration `toml:"dedupe_ttl"`
	RatePerMinute   int           `toml:"rate_per_minute"`
	GenerateTimeout time.Duration `toml:"generate_timeout"`
	// MetricsAddr enables the Prometheus endpoint when non-empty, e.g. ":9090".
	MetricsAddr string        `toml:"metrics_addr"`
	Log         LogConfig     `toml:"log"`
	LLM         llm.LLMConfig `toml:"llm"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DB:              defaultDBPath(),
		LocalUser:       defaultLocalUser(),
		SessionTTL:      time.Hour,
		DedupeTTL:       10 * time.Minute,
		RatePerMinute:   60,
		GenerateTimeout: 60 * time.Second,
		Log:             LogConfig{Level: "info", Format: "text"},
		LLM:             llm.DefaultConfig(),
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "estibot.db"
	}
	return filepath.Join(home, ".estibot", "estibot.db")
}

func defaultLocalUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

// Load builds the effective configuration. path names a TOML file; when
// empty, ESTIBOT_CONFIG is consulted, and when that is empty too no file is
// read.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("ESTIBOT_CONFIG")
	}
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	md, err := toml.Decode(expandEnvVars(string(data)), cfg)
	if err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("parsing config: unknown keys %s", strings.Join(keys, ", "))
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the variable's value.
func expandEnvVars(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("ESTIBOT_DB"); v != "" {
		cfg.DB = v
	}
	if v := os.Getenv("ESTIBOT_LOCAL_USER"); v != "" {
		cfg.LocalUser = v
	}
	if v := os.Getenv("ESTIBOT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ESTIBOT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v, ok := os.LookupEnv("ESTIBOT_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"ESTIBOT_SESSION_TTL", &cfg.SessionTTL},
		{"ESTIBOT_DEDUPE_TTL", &cfg.DedupeTTL},
		{"ESTIBOT_GENERATE_TIMEOUT", &cfg.GenerateTimeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.name)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if v := os.Getenv("ESTIBOT_RATE_PER_MIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ESTIBOT_RATE_PER_MIN: %w", err)
		}
		cfg.RatePerMinute = n
	}

	cfg.LLM = llm.ApplyEnv(cfg.LLM)
	return nil
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DB) == "" {
		return errors.New("db is required")
	}
	if strings.TrimSpace(c.LocalUser) == "" {
		return errors.New("local_user is required")
	}
	if c.SessionTTL < 0 || c.DedupeTTL < 0 {
		return errors.New("ttl values must not be negative")
	}
	if c.RatePerMinute < 0 {
		return errors.New("rate_per_minute must not be negative")
	}
	if c.GenerateTimeout <= 0 {
		return errors.New("generate_timeout must be positive")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.LLM.Enabled && c.LLM.Endpoint == "" {
		return errors.New("llm.endpoint is required when the assistant is enabled")
	}
	return nil
}
