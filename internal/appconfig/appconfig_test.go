package appconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// withTempHome points HOME at a temp dir so tests never touch the real config.
func withTempHome(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	return tmpDir
}

// writeTestConfig creates ~/.config/landlord/config.json under a temp HOME.
func writeTestConfig(t *testing.T, cfg *Config) {
	t.Helper()
	tmpDir := withTempHome(t)
	dir := filepath.Join(tmpDir, ".config", "landlord")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

func TestServerURLDefault(t *testing.T) {
	withTempHome(t)
	t.Setenv("LANDLORD_SERVER_URL", "")
	if got := GetServerURL(); got != "http://localhost:8080" {
		t.Fatalf("default server url: got %q", got)
	}
}

func TestServerURLFromConfig(t *testing.T) {
	writeTestConfig(t, &Config{Sync: SyncConfig{URL: "https://api.example.com"}})
	t.Setenv("LANDLORD_SERVER_URL", "")
	if got := GetServerURL(); got != "https://api.example.com" {
		t.Fatalf("config server url: got %q", got)
	}
}

func TestServerURLEnvOverridesConfig(t *testing.T) {
	writeTestConfig(t, &Config{Sync: SyncConfig{URL: "https://api.example.com"}})
	t.Setenv("LANDLORD_SERVER_URL", "https://staging.example.com")
	if got := GetServerURL(); got != "https://staging.example.com" {
		t.Fatalf("env server url: got %q", got)
	}
}

func TestServerURLAuthBeatsConfig(t *testing.T) {
	writeTestConfig(t, &Config{Sync: SyncConfig{URL: "https://api.example.com"}})
	t.Setenv("LANDLORD_SERVER_URL", "")
	if err := SaveAuth(&AuthCredentials{APIKey: "k", ServerURL: "https://login.example.com"}); err != nil {
		t.Fatalf("save auth: %v", err)
	}
	if got := GetServerURL(); got != "https://login.example.com" {
		t.Fatalf("auth server url: got %q", got)
	}
}

func TestAuthRoundTrip(t *testing.T) {
	withTempHome(t)
	t.Setenv("LANDLORD_API_KEY", "")

	if IsAuthenticated() {
		t.Fatal("authenticated before login")
	}

	creds := &AuthCredentials{APIKey: "secret", Email: "ops@example.com", ServerURL: "https://api.example.com"}
	if err := SaveAuth(creds); err != nil {
		t.Fatalf("save auth: %v", err)
	}
	if !IsAuthenticated() {
		t.Fatal("not authenticated after login")
	}
	if got := GetAPIKey(); got != "secret" {
		t.Fatalf("api key: got %q", got)
	}

	loaded, err := LoadAuth()
	if err != nil {
		t.Fatalf("load auth: %v", err)
	}
	if loaded.Email != "ops@example.com" {
		t.Fatalf("email: got %q", loaded.Email)
	}

	if err := ClearAuth(); err != nil {
		t.Fatalf("clear auth: %v", err)
	}
	if IsAuthenticated() {
		t.Fatal("still authenticated after logout")
	}
	// Clearing twice is fine
	if err := ClearAuth(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestOrganizationIDEnvOverridesConfig(t *testing.T) {
	writeTestConfig(t, &Config{OrganizationID: "org-file"})
	t.Setenv("LANDLORD_ORG_ID", "")
	if got := GetOrganizationID(); got != "org-file" {
		t.Fatalf("config org: got %q", got)
	}
	t.Setenv("LANDLORD_ORG_ID", "org-env")
	if got := GetOrganizationID(); got != "org-env" {
		t.Fatalf("env org: got %q", got)
	}
}

func TestSyncIntervalDefault(t *testing.T) {
	withTempHome(t)
	t.Setenv("LANDLORD_SYNC_INTERVAL", "")
	if d := GetSyncInterval(); d != 5*time.Minute {
		t.Fatalf("default interval: got %v", d)
	}
}

func TestSyncIntervalFromConfig(t *testing.T) {
	writeTestConfig(t, &Config{Sync: SyncConfig{Interval: "90s"}})
	t.Setenv("LANDLORD_SYNC_INTERVAL", "")
	if d := GetSyncInterval(); d != 90*time.Second {
		t.Fatalf("config interval: got %v", d)
	}
}

func TestSyncIntervalEnvInvalidFallsThrough(t *testing.T) {
	withTempHome(t)
	t.Setenv("LANDLORD_SYNC_INTERVAL", "soon")
	if d := GetSyncInterval(); d != 5*time.Minute {
		t.Fatalf("invalid env interval: got %v, want default", d)
	}
}

func TestProximitySettings(t *testing.T) {
	writeTestConfig(t, &Config{Proximity: ProximityConfig{
		Enabled:        boolPtr(false),
		RadiusMeters:   floatPtr(120),
		AccuracyMeters: floatPtr(50),
	}})
	t.Setenv("LANDLORD_PROXIMITY", "")
	t.Setenv("LANDLORD_PROXIMITY_RADIUS", "")
	t.Setenv("LANDLORD_PROXIMITY_ACCURACY", "")

	if GetProximityEnabled() {
		t.Error("expected proximity disabled from config")
	}
	if r := GetProximityRadius(); r != 120 {
		t.Errorf("radius: got %v, want 120", r)
	}
	if a := GetProximityAccuracy(); a != 50 {
		t.Errorf("accuracy: got %v, want 50", a)
	}

	// Env wins over config
	t.Setenv("LANDLORD_PROXIMITY", "true")
	if !GetProximityEnabled() {
		t.Error("env should override config for enabled")
	}
	t.Setenv("LANDLORD_PROXIMITY_RADIUS", "200")
	if r := GetProximityRadius(); r != 200 {
		t.Errorf("env radius: got %v, want 200", r)
	}
}

func TestProximityDefaults(t *testing.T) {
	withTempHome(t)
	t.Setenv("LANDLORD_PROXIMITY", "")
	t.Setenv("LANDLORD_PROXIMITY_RADIUS", "")
	t.Setenv("LANDLORD_PROXIMITY_ACCURACY", "")

	if !GetProximityEnabled() {
		t.Error("proximity disabled by default")
	}
	if r := GetProximityRadius(); r != 75 {
		t.Errorf("default radius: got %v, want 75", r)
	}
	if a := GetProximityAccuracy(); a != 100 {
		t.Errorf("default accuracy: got %v, want 100", a)
	}
}

func TestSyncOnStart(t *testing.T) {
	writeTestConfig(t, &Config{Sync: SyncConfig{OnStart: boolPtr(false)}})
	t.Setenv("LANDLORD_SYNC_ON_START", "")
	if GetSyncOnStart() {
		t.Error("expected on_start disabled from config")
	}
	t.Setenv("LANDLORD_SYNC_ON_START", "1")
	if !GetSyncOnStart() {
		t.Error("env should override config for on_start")
	}
}

func TestDeviceIDStability(t *testing.T) {
	withTempHome(t)

	id, err := GenerateDeviceID()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(id) != 32 {
		t.Fatalf("device id length: got %d, want 32", len(id))
	}

	if err := SaveAuth(&AuthCredentials{APIKey: "k", DeviceID: id}); err != nil {
		t.Fatalf("save auth: %v", err)
	}
	got, err := GetDeviceID()
	if err != nil {
		t.Fatalf("get device id: %v", err)
	}
	if got != id {
		t.Fatalf("device id changed: %s vs %s", got, id)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	withTempHome(t)

	cfg := &Config{
		OrganizationID: "org-1",
		Sync:           SyncConfig{URL: "https://api.example.com", Interval: "2m"},
	}
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if loaded.OrganizationID != "org-1" || loaded.Sync.Interval != "2m" {
		t.Fatalf("loaded config: %+v", loaded)
	}
}
