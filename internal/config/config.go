package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	// defaultBasePath is the root directory for app files, backups and the ledger.
	defaultBasePath = "/opt/appforge"

	appsFolder    = "apps"
	backupsFolder = "backups"
	ledgerFile    = "ledger.json"

	// defaultBasePort is where automatic port allocation starts.
	defaultBasePort = 4000

	defaultKeepBackups  = 5
	defaultBuildRetries = 3

	// Ceilings for blocking external operations. A hung engine or probe must
	// never wedge an improvement cycle forever.
	defaultBuildTimeoutSec  = 300
	defaultHealthTimeoutSec = 30
)

// Config holds the agent configuration.
type Config struct {
	// BasePath is the root directory used to store app files, backups and the ledger.
	BasePath string `yaml:"base_path,omitempty"`
	// LogLevel is the minimum log level to output (debug, info, warn, error).
	LogLevel string `yaml:"log_level,omitempty"`
	// BasePort is the first external port handed to newly created apps.
	BasePort int `yaml:"base_port,omitempty"`
	// KeepBackups is how many snapshots are retained per app.
	KeepBackups int `yaml:"keep_backups,omitempty"`
	// BuildRetries bounds build attempts per improvement cycle.
	BuildRetries int `yaml:"build_retries,omitempty"`
	// BuildTimeoutSec bounds a single image build.
	BuildTimeoutSec int `yaml:"build_timeout_sec,omitempty"`
	// HealthTimeoutSec bounds a single health check.
	HealthTimeoutSec int `yaml:"health_timeout_sec,omitempty"`
	// Generator configures the content-generation collaborator.
	Generator GeneratorConfig `yaml:"generator,omitempty"`
}

// GeneratorConfig holds settings for the content-generation API client. The
// API key is read from the OPENAI_API_KEY environment variable when empty.
type GeneratorConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// prepareConfig applies defaults so a partially filled (or absent) config
// file still yields a usable configuration.
func prepareConfig(cfg *Config) {
	if cfg.BasePath == "" {
		cfg.BasePath = defaultBasePath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.BasePort <= 0 {
		cfg.BasePort = defaultBasePort
	}
	if cfg.KeepBackups <= 0 {
		cfg.KeepBackups = defaultKeepBackups
	}
	if cfg.BuildRetries <= 0 {
		cfg.BuildRetries = defaultBuildRetries
	}
	if cfg.BuildTimeoutSec <= 0 {
		cfg.BuildTimeoutSec = defaultBuildTimeoutSec
	}
	if cfg.HealthTimeoutSec <= 0 {
		cfg.HealthTimeoutSec = defaultHealthTimeoutSec
	}
	if cfg.Generator.APIKey == "" {
		cfg.Generator.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-4o"
	}
}

// Load reads the configuration from path. A missing file is not an error;
// defaults are used instead so the agent works out of the box.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	prepareConfig(cfg)
	return cfg, nil
}

// GetAppsPath returns the directory holding live app directories.
func (c *Config) GetAppsPath() string {
	return filepath.Join(c.BasePath, appsFolder)
}

// GetAppPath returns the live directory of one app.
func (c *Config) GetAppPath(appName string) string {
	return filepath.Join(c.GetAppsPath(), appName)
}

// GetBackupsPath returns the directory holding backup snapshots.
func (c *Config) GetBackupsPath() string {
	return filepath.Join(c.BasePath, backupsFolder)
}

// GetLedgerPath returns the path of the persisted version ledger.
func (c *Config) GetLedgerPath() string {
	return filepath.Join(c.BasePath, ledgerFile)
}

// GetBuildTimeout returns the per-build ceiling.
func (c *Config) GetBuildTimeout() time.Duration {
	return time.Duration(c.BuildTimeoutSec) * time.Second
}

// GetHealthTimeout returns the per-health-check ceiling.
func (c *Config) GetHealthTimeout() time.Duration {
	return time.Duration(c.HealthTimeoutSec) * time.Second
}
