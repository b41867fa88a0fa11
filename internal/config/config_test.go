package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load("", filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Verifier != VerifierGoogle || cfg.DigestHour != 17 || cfg.SweepHour != 8 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation to require a domain")
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "labtrack.yaml")
	os.WriteFile(yamlPath, []byte("addr: \":9000\"\nallowed_domain: lab.example\ndigest_hour: 16\nverifier: jwt\n"), 0644)

	envPath := filepath.Join(dir, ".env")
	os.WriteFile(envPath, []byte("LABTRACK_SLACK_WEBHOOK=https://hooks.example/x\nLABTRACK_SWEEP_HOUR=7\n"), 0644)

	t.Setenv("LABTRACK_DIGEST_HOUR", "18")
	t.Setenv("LABTRACK_ALLOW_LOCAL", "true")

	cfg, err := load(yamlPath, envPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("LABTRACK_SLACK_WEBHOOK")
		os.Unsetenv("LABTRACK_SWEEP_HOUR")
	})

	if cfg.Addr != ":9000" || cfg.AllowedDomain != "lab.example" || cfg.Verifier != VerifierJWT {
		t.Errorf("expected yaml values, got %+v", cfg)
	}
	if cfg.DigestHour != 18 {
		t.Errorf("expected env to override yaml digest hour, got %d", cfg.DigestHour)
	}
	if cfg.SweepHour != 7 || cfg.SlackWebhook != "https://hooks.example/x" {
		t.Errorf("expected .env values, got %+v", cfg)
	}
	if !cfg.AllowLocal {
		t.Error("expected allow_local from env")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("LABTRACK_DIGEST_HOUR", "five")
	if _, err := load("", filepath.Join(t.TempDir(), "none.env")); err == nil {
		t.Error("expected error for non-numeric hour")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"ok", func(c *Config) {}, true},
		{"bad verifier", func(c *Config) { c.Verifier = "saml" }, false},
		{"bad hour", func(c *Config) { c.DigestHour = 24 }, false},
		{"negative sweep", func(c *Config) { c.SweepHour = -1 }, false},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, false},
		{"utc", func(c *Config) { c.Timezone = "UTC" }, true},
	}

	for _, tt := range tests {
		cfg := Default()
		cfg.AllowedDomain = "lab.example"
		tt.modify(cfg)
		if err := cfg.Validate(); (err == nil) != tt.valid {
			t.Errorf("%s: Validate() = %v, want valid=%v", tt.name, err, tt.valid)
		}
	}
}
