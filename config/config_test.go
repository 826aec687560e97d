package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	// Create temp config file
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "siteimg.yaml")

	configContent := `
paths:
  root: "/srv/site"
  public_dir: "public"
  content_dir: "src/content"
  generated_dir: "_generated"

logo: "/assets/logo.png"

content:
  extensions: [".json"]

gallery:
  include_edition_dirs: true

workers: 4

server:
  host: "0.0.0.0"
  port: 8080

site:
  build_command: ["npx", "astro", "build"]
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.PublicPath() != "/srv/site/public" {
		t.Errorf("Expected public path '/srv/site/public', got '%s'", cfg.PublicPath())
	}

	if cfg.ContentPath() != "/srv/site/src/content" {
		t.Errorf("Expected content path '/srv/site/src/content', got '%s'", cfg.ContentPath())
	}

	if cfg.GeneratedPath() != "/srv/site/public/_generated" {
		t.Errorf("Expected generated path '/srv/site/public/_generated', got '%s'", cfg.GeneratedPath())
	}

	if cfg.GeneratedURL() != "/_generated" {
		t.Errorf("Expected generated URL '/_generated', got '%s'", cfg.GeneratedURL())
	}

	if cfg.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.Workers)
	}

	if len(cfg.Content.Extensions) != 1 {
		t.Errorf("Expected 1 content extension, got %d", len(cfg.Content.Extensions))
	}

	if !cfg.Gallery.IncludeEditionDirs {
		t.Error("Expected include_edition_dirs to be set")
	}

	if cfg.Gallery.EditionsDir != "/assets/editions" {
		t.Errorf("Expected default editions dir, got '%s'", cfg.Gallery.EditionsDir)
	}

	if cfg.ServerAddr() != "0.0.0.0:8080" {
		t.Errorf("Expected server addr '0.0.0.0:8080', got '%s'", cfg.ServerAddr())
	}

	if len(cfg.Site.BuildCommand) != 3 {
		t.Errorf("Expected 3 build command args, got %d", len(cfg.Site.BuildCommand))
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if cfg.Logo != "/assets/logo.png" {
		t.Errorf("Expected default logo, got '%s'", cfg.Logo)
	}

	if _, err := LoadOrDefault(filepath.Join(dir, "explicit.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SITEIMG_ROOT":            "/tmp/site",
		"SITEIMG_GENERATED_DIR":   "/tmp/out",
		"SITEIMG_WORKERS":         "3",
		"GENERATE_IMAGES_VERBOSE": "1",
	}
	cfg := Default()
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.PublicPath() != "/tmp/site/public" {
		t.Errorf("Expected public path '/tmp/site/public', got '%s'", cfg.PublicPath())
	}
	if cfg.GeneratedPath() != "/tmp/out" {
		t.Errorf("Expected generated path '/tmp/out', got '%s'", cfg.GeneratedPath())
	}
	if cfg.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.Workers)
	}
	if !cfg.Log.Verbose || cfg.Log.Quiet {
		t.Errorf("Expected verbose only, got verbose=%v quiet=%v", cfg.Log.Verbose, cfg.Log.Quiet)
	}

	bad := Default()
	if err := bad.ApplyEnv(func(k string) string {
		if k == "SITEIMG_WORKERS" {
			return "many"
		}
		return ""
	}); err == nil {
		t.Error("Expected error for non-numeric SITEIMG_WORKERS")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("SITEIMG_TEST_DOTENV=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("SITEIMG_TEST_DOTENV") })

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envFile); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("SITEIMG_TEST_DOTENV"); got != "from-file" {
		t.Errorf("Expected 'from-file', got '%s'", got)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing public_dir",
			mutate:  func(c *Config) { c.Paths.PublicDir = "" },
			wantErr: true,
		},
		{
			name:    "missing generated_dir",
			mutate:  func(c *Config) { c.Paths.GeneratedDir = "" },
			wantErr: true,
		},
		{
			name:    "remote logo",
			mutate:  func(c *Config) { c.Logo = "https://cdn/logo.png" },
			wantErr: true,
		},
		{
			name:    "no logo",
			mutate:  func(c *Config) { c.Logo = "" },
			wantErr: false,
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Workers = 0 },
			wantErr: true,
		},
		{
			name:    "unsupported extension",
			mutate:  func(c *Config) { c.Content.Extensions = []string{".toml"} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
