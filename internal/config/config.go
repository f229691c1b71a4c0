package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all agent configuration
type Config struct {
	ServerAddress string   `json:"serverAddress"`
	DatabasePath  string   `json:"databasePath"`
	Backend       Backend  `json:"backend"`
	Identity      Identity `json:"identity"`
	Sync          Sync     `json:"sync"`
	Security      Security `json:"security"`
}

// Backend configuration for the central scouting API
type Backend struct {
	BaseURL        string `json:"baseUrl"`
	Token          string `json:"token"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// Timeout returns the request timeout as a duration
func (b Backend) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// Identity pins this device to a company and worker
type Identity struct {
	CompanyID  int    `json:"companyId"`
	WorkerID   string `json:"workerId"`
	WorkerName string `json:"workerName"`
}

// Sync configuration for the background scheduler
type Sync struct {
	IntervalMinutes int  `json:"intervalMinutes"`
	AutoStart       bool `json:"autoStart"`
	RefreshZones    bool `json:"refreshZonesOnStart"`
}

// Interval returns the scheduler cadence as a duration
func (s Sync) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// Security configuration for the local API
type Security struct {
	APIKey       string `json:"apiKey"`
	APIKeyHeader string `json:"apiKeyHeader"`
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		ServerAddress: "127.0.0.1:5600",
		DatabasePath:  "fieldsync.db",
		Backend: Backend{
			TimeoutSeconds: 30,
		},
		Sync: Sync{
			IntervalMinutes: 15,
			AutoStart:       true,
			RefreshZones:    true,
		},
		Security: Security{
			APIKeyHeader: "X-API-Key",
		},
	}
}

// Load loads configuration from file or environment
func Load() (*Config, error) {
	cfg := defaultConfig()

	// Try to load from config file
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override from environment variables
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.ServerAddress = addr
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if baseURL := os.Getenv("BACKEND_BASE_URL"); baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}
	if token := os.Getenv("BACKEND_TOKEN"); token != "" {
		cfg.Backend.Token = token
	}
	if companyID := os.Getenv("COMPANY_ID"); companyID != "" {
		if id, err := strconv.Atoi(companyID); err == nil {
			cfg.Identity.CompanyID = id
		}
	}
	if workerID := os.Getenv("WORKER_ID"); workerID != "" {
		cfg.Identity.WorkerID = workerID
	}
	if workerName := os.Getenv("WORKER_NAME"); workerName != "" {
		cfg.Identity.WorkerName = workerName
	}
	if interval := os.Getenv("SYNC_INTERVAL_MINUTES"); interval != "" {
		if minutes, err := strconv.Atoi(interval); err == nil && minutes > 0 {
			cfg.Sync.IntervalMinutes = minutes
		}
	}
	if autoStart := os.Getenv("SYNC_AUTO_START"); autoStart != "" {
		cfg.Sync.AutoStart = autoStart == "true" || autoStart == "1"
	}
	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		cfg.Security.APIKey = apiKey
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL is required (set backend.baseUrl or BACKEND_BASE_URL)")
	}
	if c.Identity.WorkerID == "" {
		return fmt.Errorf("worker identity is required (set identity.workerId or WORKER_ID)")
	}
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = 30
	}
	return nil
}
