package config

import "testing"

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value    string
		fallback bool
		want     bool
	}{
		{"1", false, true},
		{"true", false, true},
		{"TRUE", false, true},
		{"Yes", false, true},
		{"y", false, true},
		{"on", false, true},
		{"0", true, false},
		{"false", true, false},
		{"No", true, false},
		{"n", true, false},
		{"OFF", true, false},
		{"", true, true},
		{"", false, false},
		{"maybe", true, true},
		{"  true  ", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL_ENV", tt.value)
			if got := getEnvBool("TEST_BOOL_ENV", tt.fallback); got != tt.want {
				t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.value, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 3002 {
		t.Errorf("Port = %d, want 3002", cfg.Port)
	}
	if cfg.MaxBodyBytes != 10*1024*1024 {
		t.Errorf("MaxBodyBytes = %d, want 10 MiB", cfg.MaxBodyBytes)
	}
	if cfg.ModuleHealthcheckIntervalSeconds != 10 {
		t.Errorf("ModuleHealthcheckIntervalSeconds = %d, want 10", cfg.ModuleHealthcheckIntervalSeconds)
	}
	if cfg.ObjectStoreCleanupEnabled {
		t.Error("cleanup should default to disabled")
	}
	if !cfg.ObjectStoreCleanupDryRun {
		t.Error("cleanup should default to dry-run")
	}
	if cfg.ObjectStoreTTLDays != 7 {
		t.Errorf("ObjectStoreTTLDays = %d, want 7", cfg.ObjectStoreTTLDays)
	}
	if cfg.BatchIndexTTLDays != 7 {
		t.Errorf("BatchIndexTTLDays = %d, want ObjectStoreTTLDays default", cfg.BatchIndexTTLDays)
	}
}

func TestLoadFloors(t *testing.T) {
	t.Setenv("MODULE_HEALTHCHECK_INTERVAL_SECONDS", "0")
	t.Setenv("OBJECT_STORE_TTL_DAYS", "-3")

	cfg := Load()
	if cfg.ModuleHealthcheckIntervalSeconds != 1 {
		t.Errorf("healthcheck interval floor = %d, want 1", cfg.ModuleHealthcheckIntervalSeconds)
	}
	if cfg.ObjectStoreTTLDays != 1 {
		t.Errorf("object TTL floor = %d, want 1", cfg.ObjectStoreTTLDays)
	}
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example ,, ")

	cfg := Load()
	if len(cfg.CORSAllowOrigins) != 2 {
		t.Fatalf("got %d origins, want 2: %v", len(cfg.CORSAllowOrigins), cfg.CORSAllowOrigins)
	}
	if cfg.CORSAllowOrigins[0] != "https://a.example" || cfg.CORSAllowOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %v", cfg.CORSAllowOrigins)
	}
}
