package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"siteimg/content"
	"siteimg/discovery"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = "siteimg.yaml"

// Config represents the application configuration
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Logo    string        `yaml:"logo"`
	Content ContentConfig `yaml:"content"`
	Gallery GalleryConfig `yaml:"gallery"`
	Workers int           `yaml:"workers"`
	Server  ServerConfig  `yaml:"server"`
	Site    SiteConfig    `yaml:"site"`
	Watch   WatchConfig   `yaml:"watch"`
	Log     LogConfig     `yaml:"log"`
}

// PathsConfig locates the site on disk. Relative paths resolve against Root;
// GeneratedDir resolves against PublicDir.
type PathsConfig struct {
	Root         string `yaml:"root"`
	PublicDir    string `yaml:"public_dir"`
	ContentDir   string `yaml:"content_dir"`
	GeneratedDir string `yaml:"generated_dir"`
	// GeneratedURL is the public URL prefix of GeneratedDir.
	GeneratedURL string `yaml:"generated_url"`
}

type ContentConfig struct {
	Extensions []string `yaml:"extensions"`
}

type GalleryConfig struct {
	// IncludeEditionDirs adds images dropped into per-edition folders to the
	// photo set, in addition to those listed in content records.
	IncludeEditionDirs bool   `yaml:"include_edition_dirs"`
	EditionsDir        string `yaml:"editions_dir"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type SiteConfig struct {
	// BuildCommand runs after images are generated, e.g. ["npx", "astro", "build"].
	BuildCommand []string `yaml:"build_command"`
}

type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Verbose bool   `yaml:"verbose"`
	Quiet   bool   `yaml:"quiet"`
}

// Default returns the configuration of a site laid out as
// public/ + src/content/ in the working directory.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Root:         ".",
			PublicDir:    "public",
			ContentDir:   filepath.Join("src", "content"),
			GeneratedDir: "_generated",
		},
		Logo:    "/assets/logo.png",
		Content: ContentConfig{Extensions: append([]string(nil), content.DefaultExtensions...)},
		Gallery: GalleryConfig{EditionsDir: discovery.DefaultEditionsDir},
		Workers: 1,
		Server:  ServerConfig{Host: "127.0.0.1", Port: 4322},
		Watch:   WatchConfig{DebounceMs: 500},
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads and parses the configuration file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to the defaults when path is the
// default file name and it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	cfg, err := Load(path)
	if err != nil && path == DefaultFile && errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		return cfg, cfg.Validate()
	}
	return cfg, err
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding existing variables. Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("SITEIMG_ROOT"); v != "" {
		c.Paths.Root = v
	}
	if v := getenv("SITEIMG_PUBLIC_DIR"); v != "" {
		c.Paths.PublicDir = v
	}
	if v := getenv("SITEIMG_CONTENT_DIR"); v != "" {
		c.Paths.ContentDir = v
	}
	if v := getenv("SITEIMG_GENERATED_DIR"); v != "" {
		c.Paths.GeneratedDir = v
	}
	if v := getenv("SITEIMG_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SITEIMG_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if getenv("GENERATE_IMAGES_VERBOSE") == "1" {
		c.Log.Verbose = true
	}
	if getenv("GENERATE_IMAGES_QUIET") == "1" {
		c.Log.Quiet = true
	}
	return c.Validate()
}

// Validate checks if required configuration fields are set
func (c *Config) Validate() error {
	if c.Paths.PublicDir == "" {
		return fmt.Errorf("paths.public_dir is required")
	}
	if c.Paths.GeneratedDir == "" {
		return fmt.Errorf("paths.generated_dir is required")
	}
	if c.Logo != "" && !discovery.IsLocalImagePath(c.Logo) {
		return fmt.Errorf("logo must be a root-relative png or jpeg path, got %q", c.Logo)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	for _, ext := range c.Content.Extensions {
		if !content.Supported(ext) {
			return fmt.Errorf("content.extensions: unsupported extension %q", ext)
		}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// PublicPath returns the filesystem path of the public directory.
func (c *Config) PublicPath() string {
	return c.resolve(c.Paths.PublicDir)
}

// ContentPath returns the filesystem path of the content directory.
func (c *Config) ContentPath() string {
	return c.resolve(c.Paths.ContentDir)
}

// GeneratedPath returns the filesystem path derivatives are written to.
func (c *Config) GeneratedPath() string {
	if filepath.IsAbs(c.Paths.GeneratedDir) {
		return c.Paths.GeneratedDir
	}
	return filepath.Join(c.PublicPath(), c.Paths.GeneratedDir)
}

// GeneratedURL returns the public URL prefix of the generated directory.
func (c *Config) GeneratedURL() string {
	if c.Paths.GeneratedURL != "" {
		return c.Paths.GeneratedURL
	}
	if filepath.IsAbs(c.Paths.GeneratedDir) {
		return "/_generated"
	}
	return path.Join("/", filepath.ToSlash(c.Paths.GeneratedDir))
}

// ServerAddr returns host:port for the resolver server.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	root := c.Paths.Root
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	return filepath.Join(root, p)
}
