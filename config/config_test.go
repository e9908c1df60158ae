package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.TrustedUsers) != 0 {
		t.Errorf("expected empty trusted list, got %v", cfg.TrustedUsers)
	}
	if cfg.RateLimit.NewPackagesPerWeek != 1 {
		t.Errorf("expected limit 1, got %d", cfg.RateLimit.NewPackagesPerWeek)
	}
	if cfg.RateLimit.WindowDays != 7 {
		t.Errorf("expected 7 day window, got %d", cfg.RateLimit.WindowDays)
	}
	if cfg.Window() != 7*24*time.Hour {
		t.Errorf("expected 168h window, got %s", cfg.Window())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero limit",
			modify:  func(c *Config) { c.RateLimit.NewPackagesPerWeek = 0 },
			wantErr: true,
		},
		{
			name:    "zero window",
			modify:  func(c *Config) { c.RateLimit.WindowDays = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadJSONDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.json")
	doc := `{"trusted_users": ["release-bot", "svc-*"], "rate_limit": {"new_packages_per_week": 3, "window_days": 14}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.TrustedUsers) != 2 || cfg.TrustedUsers[0] != "release-bot" {
		t.Errorf("trusted users = %v", cfg.TrustedUsers)
	}
	if cfg.RateLimit.NewPackagesPerWeek != 3 {
		t.Errorf("limit = %d, want 3", cfg.RateLimit.NewPackagesPerWeek)
	}
	if cfg.RateLimit.WindowDays != 14 {
		t.Errorf("window days = %d, want 14", cfg.RateLimit.WindowDays)
	}
}

func TestLoadPartialDocumentKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.json")
	if err := os.WriteFile(path, []byte(`{"trusted_users": ["alice"]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.RateLimit.NewPackagesPerWeek != 1 || cfg.RateLimit.WindowDays != 7 {
		t.Errorf("defaults not preserved: %+v", cfg.RateLimit)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.RateLimit.NewPackagesPerWeek != 1 {
		t.Errorf("expected defaults for missing file, got %+v", cfg)
	}

	cfg, err = Load("")
	if err != nil || cfg.RateLimit.WindowDays != 7 {
		t.Errorf("expected defaults for empty path, got %+v, %v", cfg, err)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.json")
	if err := os.WriteFile(path, []byte("{: not a document"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed document")
	}
}
