package config

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func skipIfNotUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping: Unix permissions not reliable on Windows")
	}
	if os.Getuid() == 0 {
		t.Skip("skipping: running as root bypasses permissions")
	}
}

// configWithTmpDir returns a Config whose config.json lives in a
// fresh temp directory.
func configWithTmpDir(t *testing.T) (Config, string) {
	t.Helper()
	dir := t.TempDir()
	return Config{DataDir: filepath.Join(dir, "data")}, dir
}

func loadConfigFromFlags(t *testing.T, register func(*flag.FlagSet), args ...string) (Config, error) {
	t.Helper()
	isolateHome(t)
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	register(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return Load(fs)
}

// isolateHome keeps Load from picking up a real ~/.chatview/config.json.
func isolateHome(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
}

func TestDefaultValues(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want 127.0.0.1", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.PageSize != 500 {
		t.Errorf("PageSize = %d, want 500", cfg.PageSize)
	}
	if cfg.KeepSnapshots != 10 {
		t.Errorf("KeepSnapshots = %d, want 10", cfg.KeepSnapshots)
	}
	if cfg.BaseURL == "" {
		t.Error("BaseURL is empty")
	}
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("OCS_API_KEY", "env-key")
	t.Setenv("OCS_API_BASE_URL", "https://env.example.com")
	t.Setenv("OCS_PROJECT_ID", "proj-env")
	custom := t.TempDir()
	t.Setenv("CHATVIEW_DATA_DIR", custom)

	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.loadEnv()

	if cfg.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.APIKey)
	}
	if cfg.BaseURL != "https://env.example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.ProjectID != "proj-env" {
		t.Errorf("ProjectID = %q, want proj-env", cfg.ProjectID)
	}
	if cfg.DataDir != custom {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, custom)
	}
}

func TestLoad_AppliesExplicitFlags(t *testing.T) {
	cfg, err := loadConfigFromFlags(t, RegisterServeFlags, "-host", "0.0.0.0", "-port", "9090")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want %q", cfg.Host, "0.0.0.0")
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want %d", cfg.Port, 9090)
	}
}

func TestLoad_FetchFlags(t *testing.T) {
	cfg, err := loadConfigFromFlags(t, RegisterFetchFlags,
		"-project", "proj-2", "-max-pages", "3", "-keep", "5")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ProjectID != "proj-2" {
		t.Errorf("ProjectID = %q, want proj-2", cfg.ProjectID)
	}
	if cfg.MaxPages != 3 {
		t.Errorf("MaxPages = %d, want 3", cfg.MaxPages)
	}
	if cfg.KeepSnapshots != 5 {
		t.Errorf("KeepSnapshots = %d, want 5", cfg.KeepSnapshots)
	}
}

func TestLoad_DefaultsWithoutFlags(t *testing.T) {
	cfg, err := loadConfigFromFlags(t, RegisterServeFlags)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want default %q", cfg.Host, "127.0.0.1")
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want default %d", cfg.Port, 8080)
	}
}

func TestLoad_NilFlagSet(t *testing.T) {
	isolateHome(t)
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want %q", cfg.Host, "127.0.0.1")
	}
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	t.Setenv("OCS_PROJECT_ID", "proj-env")

	cfg, err := loadConfigFromFlags(t, RegisterFetchFlags, "-project", "proj-flag")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ProjectID != "proj-flag" {
		t.Errorf("ProjectID = %q, want proj-flag", cfg.ProjectID)
	}
}

func TestRequireCredentials(t *testing.T) {
	cfg := Config{}
	if err := cfg.RequireCredentials(); err == nil {
		t.Error("expected error with no credentials")
	}

	cfg.APIKey = "k"
	if err := cfg.RequireCredentials(); err == nil {
		t.Error("expected error with no project id")
	}

	cfg.ProjectID = "p"
	if err := cfg.RequireCredentials(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSaveCredentials_RejectsCorruptConfig(t *testing.T) {
	cfg, tmp := configWithTmpDir(t)

	path := filepath.Join(tmp, "config.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := cfg.SaveCredentials("key", "proj"); err == nil {
		t.Fatal("expected error for corrupt config")
	}
}

func TestSaveCredentials_ReturnsErrorOnReadFailure(t *testing.T) {
	skipIfNotUnix(t)

	cfg, tmp := configWithTmpDir(t)

	path := filepath.Join(tmp, "config.json")
	if err := os.WriteFile(path, []byte(`{"k":"v"}`), 0o000); err != nil {
		t.Fatal(err)
	}

	err := cfg.SaveCredentials("key", "proj")
	if err == nil {
		t.Fatal("expected error for unreadable config file")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSaveCredentials_PreservesExistingKeys(t *testing.T) {
	cfg, tmp := configWithTmpDir(t)

	existing, _ := json.Marshal(map[string]any{"custom_key": "value"})
	if err := os.WriteFile(filepath.Join(tmp, "config.json"), existing, 0o600); err != nil {
		t.Fatal(err)
	}

	if err := cfg.SaveCredentials("new-key", "proj-9"); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(tmp, "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	var result map[string]any
	if err := json.Unmarshal(got, &result); err != nil {
		t.Fatal(err)
	}
	if result["custom_key"] != "value" {
		t.Errorf("custom_key = %v, want %q", result["custom_key"], "value")
	}
	if result["api_key"] != "new-key" {
		t.Errorf("api_key = %v, want %q", result["api_key"], "new-key")
	}
	if result["project_id"] != "proj-9" {
		t.Errorf("project_id = %v, want %q", result["project_id"], "proj-9")
	}
}

func TestLoadFile_AppliesValues(t *testing.T) {
	cfg, tmp := configWithTmpDir(t)

	file, _ := json.Marshal(map[string]any{
		"api_key":    "file-key",
		"project_id": "proj-file",
		"page_size":  100,
		"port":       9999,
	})
	if err := os.WriteFile(filepath.Join(tmp, "config.json"), file, 0o600); err != nil {
		t.Fatal(err)
	}

	if err := cfg.loadFile(); err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want file-key", cfg.APIKey)
	}
	if cfg.ProjectID != "proj-file" {
		t.Errorf("ProjectID = %q, want proj-file", cfg.ProjectID)
	}
	if cfg.PageSize != 100 {
		t.Errorf("PageSize = %d, want 100", cfg.PageSize)
	}
	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Port)
	}
}

func TestLoadFile_MissingIsFine(t *testing.T) {
	cfg, _ := configWithTmpDir(t)
	if err := cfg.loadFile(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
