package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Remote API access.
	APIKey    string `json:"api_key,omitempty"`
	BaseURL   string `json:"base_url"`
	ProjectID string `json:"project_id"`

	// Local storage.
	DataDir   string `json:"data_dir"`
	OutputDir string `json:"output_dir"`

	// Fetch behavior.
	PageSize       int           `json:"page_size"`
	MaxPages       int           `json:"max_pages"`
	KeepSnapshots  int           `json:"keep_snapshots"`
	RequestTimeout time.Duration `json:"-"`

	// Serve behavior.
	Host      string `json:"host"`
	Port      int    `json:"port"`
	NoBrowser bool   `json:"no_browser"`
}

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("determining home directory: %w", err)
	}
	base := filepath.Join(home, ".chatview")
	return Config{
		BaseURL:        "https://chatbots.dimagi.com",
		DataDir:        filepath.Join(base, "data"),
		OutputDir:      filepath.Join(base, "reports"),
		PageSize:       500,
		KeepSnapshots:  10,
		RequestTimeout: 60 * time.Second,
		Host:           "127.0.0.1",
		Port:           8080,
	}, nil
}

// Load builds a Config by layering: defaults < config file < env < flags.
// The provided FlagSet must already be parsed by the caller.
// Only flags that were explicitly set override the lower layers.
func Load(fs *flag.FlagSet) (Config, error) {
	cfg, err := LoadMinimal()
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg, fs)
	return cfg, nil
}

// LoadMinimal builds a Config from defaults, config file, and env,
// without parsing CLI flags. Use this for subcommands that manage
// their own flag sets.
func LoadMinimal() (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	cfg.loadEnv()
	return cfg, nil
}

func (c *Config) configPath() string {
	return filepath.Join(filepath.Dir(c.DataDir), "config.json")
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file struct {
		APIKey        string `json:"api_key"`
		BaseURL       string `json:"base_url"`
		ProjectID     string `json:"project_id"`
		DataDir       string `json:"data_dir"`
		OutputDir     string `json:"output_dir"`
		PageSize      int    `json:"page_size"`
		MaxPages      int    `json:"max_pages"`
		KeepSnapshots int    `json:"keep_snapshots"`
		Host          string `json:"host"`
		Port          int    `json:"port"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if file.APIKey != "" {
		c.APIKey = file.APIKey
	}
	if file.BaseURL != "" {
		c.BaseURL = file.BaseURL
	}
	if file.ProjectID != "" {
		c.ProjectID = file.ProjectID
	}
	if file.DataDir != "" {
		c.DataDir = file.DataDir
	}
	if file.OutputDir != "" {
		c.OutputDir = file.OutputDir
	}
	if file.PageSize > 0 {
		c.PageSize = file.PageSize
	}
	if file.MaxPages > 0 {
		c.MaxPages = file.MaxPages
	}
	if file.KeepSnapshots > 0 {
		c.KeepSnapshots = file.KeepSnapshots
	}
	if file.Host != "" {
		c.Host = file.Host
	}
	if file.Port > 0 {
		c.Port = file.Port
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv("OCS_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("OCS_API_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("OCS_PROJECT_ID"); v != "" {
		c.ProjectID = v
	}
	if v := os.Getenv("CHATVIEW_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("CHATVIEW_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
}

// RequireCredentials validates that the remote API can be reached
// with this configuration.
func (c *Config) RequireCredentials() error {
	if c.APIKey == "" {
		return fmt.Errorf("no API key configured (set OCS_API_KEY or api_key in config.json)")
	}
	if c.ProjectID == "" {
		return fmt.Errorf("no project configured (set OCS_PROJECT_ID or project_id in config.json)")
	}
	return nil
}

// RegisterServeFlags registers serve-command flags on fs.
// The caller must call fs.Parse before passing fs to Load.
func RegisterServeFlags(fs *flag.FlagSet) {
	fs.String("host", "127.0.0.1", "Host to bind to")
	fs.Int("port", 8080, "Port to listen on")
	fs.Bool("no-browser", false, "Don't open browser on startup")
	fs.String("data-dir", "", "Snapshot data directory")
}

// RegisterFetchFlags registers fetch-command flags on fs.
func RegisterFetchFlags(fs *flag.FlagSet) {
	fs.String("base-url", "", "API base URL")
	fs.String("project", "", "Project ID to fetch")
	fs.Int("page-size", 0, "Records per API page")
	fs.Int("max-pages", 0, "Stop after this many pages (0 = all)")
	fs.Int("keep", 0, "Snapshots to keep after fetch")
	fs.String("data-dir", "", "Snapshot data directory")
}

// RegisterReportFlags registers report-command flags on fs.
func RegisterReportFlags(fs *flag.FlagSet) {
	fs.String("data-dir", "", "Snapshot data directory")
	fs.String("output-dir", "", "Directory for generated reports")
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *flag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = f.Value.String()
		case "port":
			// flag already validated the int; ignore parse error
			cfg.Port, _ = strconv.Atoi(f.Value.String())
		case "no-browser":
			cfg.NoBrowser = f.Value.String() == "true"
		case "base-url":
			cfg.BaseURL = f.Value.String()
		case "project":
			cfg.ProjectID = f.Value.String()
		case "page-size":
			cfg.PageSize, _ = strconv.Atoi(f.Value.String())
		case "max-pages":
			cfg.MaxPages, _ = strconv.Atoi(f.Value.String())
		case "keep":
			cfg.KeepSnapshots, _ = strconv.Atoi(f.Value.String())
		case "data-dir":
			cfg.DataDir = f.Value.String()
		case "output-dir":
			cfg.OutputDir = f.Value.String()
		}
	})
}

// SaveCredentials persists the API key and project id to the config
// file, preserving any other keys already present.
func (c *Config) SaveCredentials(apiKey, projectID string) error {
	dir := filepath.Dir(c.configPath())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	existing := make(map[string]any)
	data, err := os.ReadFile(c.configPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("existing config is invalid, cannot update: %w", err)
		}
	}

	existing["api_key"] = apiKey
	existing["project_id"] = projectID
	out, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(c.configPath(), out, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	c.APIKey = apiKey
	c.ProjectID = projectID
	return nil
}
