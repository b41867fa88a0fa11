// Package config loads server settings from defaults, an optional YAML
// file, a .env file and LABTRACK_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Identity verifiers.
const (
	VerifierGoogle = "google"
	VerifierJWT    = "jwt"
)

// Config holds everything the server needs at startup.
type Config struct {
	Addr string `yaml:"addr"`
	// DB is a SQLite path or a postgres:// DSN.
	DB string `yaml:"db"`

	AllowedDomain  string `yaml:"allowed_domain"`
	AllowLocal     bool   `yaml:"allow_local"`
	Verifier       string `yaml:"verifier"`
	JWTSecret      string `yaml:"jwt_secret"`
	GoogleClientID string `yaml:"google_client_id"`

	SlackWebhook string `yaml:"slack_webhook"`
	DigestHour   int    `yaml:"digest_hour"`
	SweepHour    int    `yaml:"sweep_hour"`
	Timezone     string `yaml:"timezone"`

	// RateLimit is a limiter rate such as "60-M" per client IP.
	RateLimit string `yaml:"rate_limit"`
	LogPath   string `yaml:"log"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Addr:       ":8080",
		DB:         "labtrack.sqlite3",
		Verifier:   VerifierGoogle,
		DigestHour: 17,
		SweepHour:  8,
		Timezone:   "Local",
		RateLimit:  "120-M",
	}
}

// Load reads the YAML file at path (if non-empty) and ./.env, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	return load(path, ".env")
}

func load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"LABTRACK_ADDR":             &c.Addr,
		"LABTRACK_DB":               &c.DB,
		"LABTRACK_DOMAIN":           &c.AllowedDomain,
		"LABTRACK_VERIFIER":         &c.Verifier,
		"LABTRACK_JWT_SECRET":       &c.JWTSecret,
		"LABTRACK_GOOGLE_CLIENT_ID": &c.GoogleClientID,
		"LABTRACK_SLACK_WEBHOOK":    &c.SlackWebhook,
		"LABTRACK_TIMEZONE":         &c.Timezone,
		"LABTRACK_RATE_LIMIT":       &c.RateLimit,
		"LABTRACK_LOG":              &c.LogPath,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"LABTRACK_DIGEST_HOUR": &c.DigestHour,
		"LABTRACK_SWEEP_HOUR":  &c.SweepHour,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("LABTRACK_ALLOW_LOCAL"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("LABTRACK_ALLOW_LOCAL: %w", err)
		}
		c.AllowLocal = b
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AllowedDomain) == "" {
		return errors.New("allowed_domain is required")
	}
	switch c.Verifier {
	case VerifierGoogle, VerifierJWT:
	default:
		return fmt.Errorf("unknown verifier %q", c.Verifier)
	}
	if c.DigestHour < 0 || c.DigestHour > 23 {
		return fmt.Errorf("digest_hour %d out of range", c.DigestHour)
	}
	if c.SweepHour < 0 || c.SweepHour > 23 {
		return fmt.Errorf("sweep_hour %d out of range", c.SweepHour)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
