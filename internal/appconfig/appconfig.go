// Package appconfig reads and writes the landlord configuration files
// under ~/.config/landlord/. Environment variables override file values.
package appconfig

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// SyncConfig holds synchronization settings.
type SyncConfig struct {
	URL      string `json:"url"`
	Interval string `json:"interval,omitempty"` // duration string, default "5m"
	OnStart  *bool  `json:"on_start,omitempty"` // nil = default true
}

// ProximityConfig holds site-matching settings.
type ProximityConfig struct {
	Enabled        *bool    `json:"enabled,omitempty"`         // nil = default true
	RadiusMeters   *float64 `json:"radius_meters,omitempty"`   // nil = default 75
	AccuracyMeters *float64 `json:"accuracy_meters,omitempty"` // nil = default 100
}

// Config is the global landlord config stored at
// ~/.config/landlord/config.json.
type Config struct {
	OrganizationID string          `json:"organization_id"`
	Sync           SyncConfig      `json:"sync"`
	Proximity      ProximityConfig `json:"proximity"`
}

// AuthCredentials stores authentication state at ~/.config/landlord/auth.json.
type AuthCredentials struct {
	APIKey    string `json:"api_key"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	ServerURL string `json:"server_url"`
	DeviceID  string `json:"device_id"`
}

const defaultServerURL = "http://localhost:8080"

// ConfigDir returns ~/.config/landlord, creating it if necessary.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "landlord")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// LoadConfig reads the global config from ~/.config/landlord/config.json.
func LoadConfig() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig writes the global config to ~/.config/landlord/config.json.
func SaveConfig(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// LoadAuth reads auth credentials from ~/.config/landlord/auth.json.
func LoadAuth() (*AuthCredentials, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "auth.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var creds AuthCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// SaveAuth writes auth credentials to ~/.config/landlord/auth.json (0600 perms).
func SaveAuth(creds *AuthCredentials) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "auth.json"), data, 0600)
}

// ClearAuth removes the auth.json file.
func ClearAuth() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, "auth.json"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// GetServerURL returns the backend URL.
// Priority: LANDLORD_SERVER_URL env > auth.json > config.json > default.
func GetServerURL() string {
	if v := os.Getenv("LANDLORD_SERVER_URL"); v != "" {
		return v
	}
	if creds, err := LoadAuth(); err == nil && creds != nil && creds.ServerURL != "" {
		return creds.ServerURL
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Sync.URL != "" {
		return cfg.Sync.URL
	}
	return defaultServerURL
}

// GetAPIKey returns the API key.
// Priority: LANDLORD_API_KEY env > auth.json.
func GetAPIKey() string {
	if v := os.Getenv("LANDLORD_API_KEY"); v != "" {
		return v
	}
	creds, err := LoadAuth()
	if err == nil && creds != nil {
		return creds.APIKey
	}
	return ""
}

// IsAuthenticated returns true if an API key is available.
func IsAuthenticated() bool {
	return GetAPIKey() != ""
}

// GetOrganizationID returns the organization scope for all reads and writes.
// Priority: LANDLORD_ORG_ID env > config.json.
func GetOrganizationID() string {
	if v := os.Getenv("LANDLORD_ORG_ID"); v != "" {
		return v
	}
	cfg, err := LoadConfig()
	if err == nil {
		return cfg.OrganizationID
	}
	return ""
}

// GetDeviceID returns the device ID from auth.json, generating one if needed.
func GetDeviceID() (string, error) {
	creds, err := LoadAuth()
	if err != nil {
		return "", err
	}
	if creds != nil && creds.DeviceID != "" {
		return creds.DeviceID, nil
	}
	return GenerateDeviceID()
}

// GenerateDeviceID creates a new random device ID (16 bytes hex).
func GenerateDeviceID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetSyncInterval returns the periodic refresh interval.
// Priority: LANDLORD_SYNC_INTERVAL env > config.json sync.interval > 5m
func GetSyncInterval() time.Duration {
	if v := os.Getenv("LANDLORD_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Sync.Interval != "" {
		if d, err := time.ParseDuration(cfg.Sync.Interval); err == nil {
			return d
		}
	}
	return 5 * time.Minute
}

// GetSyncOnStart returns whether to refresh the cache on startup.
// Priority: LANDLORD_SYNC_ON_START env > config.json sync.on_start > true
func GetSyncOnStart() bool {
	if v := parseBoolEnv("LANDLORD_SYNC_ON_START"); v != nil {
		return *v
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Sync.OnStart != nil {
		return *cfg.Sync.OnStart
	}
	return true
}

// GetProximityEnabled returns whether site matching runs.
// Priority: LANDLORD_PROXIMITY env > config.json proximity.enabled > true
func GetProximityEnabled() bool {
	if v := parseBoolEnv("LANDLORD_PROXIMITY"); v != nil {
		return *v
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Proximity.Enabled != nil {
		return *cfg.Proximity.Enabled
	}
	return true
}

// GetProximityRadius returns the match radius in meters.
// Priority: LANDLORD_PROXIMITY_RADIUS env > config.json > 75
func GetProximityRadius() float64 {
	if v := os.Getenv("LANDLORD_PROXIMITY_RADIUS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Proximity.RadiusMeters != nil && *cfg.Proximity.RadiusMeters > 0 {
		return *cfg.Proximity.RadiusMeters
	}
	return 75
}

// GetProximityAccuracy returns the accuracy gate in meters.
// Priority: LANDLORD_PROXIMITY_ACCURACY env > config.json > 100
func GetProximityAccuracy() float64 {
	if v := os.Getenv("LANDLORD_PROXIMITY_ACCURACY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Proximity.AccuracyMeters != nil && *cfg.Proximity.AccuracyMeters > 0 {
		return *cfg.Proximity.AccuracyMeters
	}
	return 100
}

// parseBoolEnv returns nil if env not set, pointer to bool if set.
func parseBoolEnv(envKey string) *bool {
	v := os.Getenv(envKey)
	if v == "" {
		return nil
	}
	v = strings.ToLower(v)
	if v == "1" || v == "true" {
		b := true
		return &b
	}
	if v == "0" || v == "false" {
		b := false
		return &b
	}
	return nil
}
