package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

const DefaultFileName = "keklauncher.yaml"

type KekConfig struct {
	Paths     PathsConfig     `yaml:"paths"`
	Download  DownloadConfig  `yaml:"download"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Watch     WatchConfig     `yaml:"watch"`
}

type PathsConfig struct {
	Base string `yaml:"base"`
}

type DownloadConfig struct {
	// Workers above 1 enables the bounded worker pool; 1 keeps batches sequential.
	Workers      int    `yaml:"workers"`
	IdleTimeout  string `yaml:"idle_timeout"`
	MaxRedirects int    `yaml:"max_redirects"`
	MaxRetries   int    `yaml:"max_retries"`
	UserAgent    string `yaml:"user_agent"`
}

type ReconcileConfig struct {
	ArtifactPatterns []string `yaml:"artifact_patterns"`
	HashWorkers      int      `yaml:"hash_workers"`
}

type CatalogConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"` // #nosec G117 -- documents expected secret input.
	GameID  int    `yaml:"game_id"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

func Default() KekConfig {
	return KekConfig{
		Paths: PathsConfig{Base: defaultBase()},
		Download: DownloadConfig{
			Workers:      1,
			IdleTimeout:  "30s",
			MaxRedirects: 10,
			MaxRetries:   0,
			UserAgent:    "keklauncher/1.0",
		},
		Reconcile: ReconcileConfig{
			ArtifactPatterns: []string{"*.jar"},
			HashWorkers:      4,
		},
		Catalog: CatalogConfig{
			BaseURL: "https://api.curseforge.com",
			GameID:  432,
		},
		Server:  ServerConfig{Listen: "127.0.0.1:8080"},
		Logging: LoggingConfig{Level: "info"},
		Watch:   WatchConfig{Debounce: "500ms"},
	}
}

var Config KekConfig = Default()

// Load reads a YAML file over the defaults. A missing file is not an error
// when allowMissing is set.
func Load(path string, allowMissing bool) (KekConfig, error) {
	configuration := Default()
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath != "" {
		// #nosec G304 -- config path is explicit local user input.
		content, err := os.ReadFile(trimmedPath)
		switch {
		case err != nil && os.IsNotExist(err) && allowMissing:
		case err != nil:
			return KekConfig{}, fmt.Errorf("read config: %w", err)
		case len(strings.TrimSpace(string(content))) > 0:
			if err := yaml.Unmarshal(content, &configuration); err != nil {
				return KekConfig{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	configuration.applyEnv()
	configuration.normalize()
	if err := configuration.Validate(); err != nil {
		return KekConfig{}, err
	}
	return configuration, nil
}

func (c *KekConfig) applyEnv() {
	if v := os.Getenv("KEK_HOME"); v != "" {
		c.Paths.Base = v
	}
	if v := os.Getenv("KEK_CURSEFORGE_API_KEY"); v != "" {
		c.Catalog.APIKey = v
	}
	if v := os.Getenv("KEK_LISTEN"); v != "" {
		c.Server.Listen = v
	}
}

func (c *KekConfig) normalize() {
	defaults := Default()
	c.Paths.Base = strings.TrimSpace(c.Paths.Base)
	if c.Paths.Base == "" {
		c.Paths.Base = defaults.Paths.Base
	}
	if c.Download.Workers < 1 {
		c.Download.Workers = 1
	}
	c.Download.IdleTimeout = strings.TrimSpace(c.Download.IdleTimeout)
	if c.Download.IdleTimeout == "" {
		c.Download.IdleTimeout = defaults.Download.IdleTimeout
	}
	if c.Download.MaxRedirects <= 0 {
		c.Download.MaxRedirects = defaults.Download.MaxRedirects
	}
	if c.Download.MaxRetries < 0 {
		c.Download.MaxRetries = 0
	}
	if strings.TrimSpace(c.Download.UserAgent) == "" {
		c.Download.UserAgent = defaults.Download.UserAgent
	}
	patterns := make([]string, 0, len(c.Reconcile.ArtifactPatterns))
	for _, p := range c.Reconcile.ArtifactPatterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		patterns = defaults.Reconcile.ArtifactPatterns
	}
	c.Reconcile.ArtifactPatterns = patterns
	if c.Reconcile.HashWorkers < 1 {
		c.Reconcile.HashWorkers = 1
	}
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaults.Catalog.BaseURL
	}
	c.Catalog.APIKey = strings.TrimSpace(c.Catalog.APIKey)
	if c.Catalog.GameID == 0 {
		c.Catalog.GameID = defaults.Catalog.GameID
	}
	c.Server.Listen = strings.TrimSpace(c.Server.Listen)
	if c.Server.Listen == "" {
		c.Server.Listen = defaults.Server.Listen
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Watch.Debounce = strings.TrimSpace(c.Watch.Debounce)
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = defaults.Watch.Debounce
	}
}

// Validate checks values that normalize cannot repair.
func (c KekConfig) Validate() error {
	if _, err := time.ParseDuration(c.Download.IdleTimeout); err != nil {
		return fmt.Errorf("download.idle_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("watch.debounce: %w", err)
	}
	return nil
}

func (c KekConfig) IdleTimeout() time.Duration {
	d, err := time.ParseDuration(c.Download.IdleTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func (c KekConfig) DebounceDelay() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d < 0 {
		return 500 * time.Millisecond
	}
	return d
}

// ModpacksDir holds available modpack manifests and exported packs.
func (c KekConfig) ModpacksDir() string {
	return filepath.Join(c.Paths.Base, "modpacks")
}

// ModsDir holds one installation directory per modpack.
func (c KekConfig) ModsDir() string {
	return filepath.Join(c.Paths.Base, "mods")
}

// WorkspaceDir holds authoring workspaces.
func (c KekConfig) WorkspaceDir() string {
	return filepath.Join(c.Paths.Base, "workspace")
}

func defaultBase() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".keklauncher")
	}
	return ".keklauncher"
}
