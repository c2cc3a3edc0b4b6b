// Package config is the rk client configuration: where the persistence service lives
// and which project each working directory is linked to.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigDir = "RK_CONFIG_DIR"
	EnvAPIURL    = "RK_API_URL"
	EnvAPIKey    = "RK_API_KEY"
	EnvFormat    = "RK_FORMAT"
)

type Config struct {
	APIURL string `yaml:"api_url,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`

	// Format is the default CLI output format ("json" or "edn").
	Format string `yaml:"format,omitempty"`

	// Policy selects sort-key allocation for moves ("resequence" or "gap-insert").
	Policy string `yaml:"policy,omitempty"`

	// Links binds absolute directory paths to a project.
	Links map[string]Link `yaml:"links,omitempty"`
}

type Link struct {
	ProjectID int64 `yaml:"project_id"`
	// ColumnID is the default column for new tasks; 0 means the first column.
	ColumnID int64 `yaml:"column_id,omitempty"`
}

func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "real-kanban"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file (a missing file is an empty config) and applies
// environment overrides.
func Load() (*Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile reads the config file without environment overrides. Use it before Save so
// overrides are not persisted.
func LoadFile() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		c.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFormat)); v != "" {
		c.Format = v
	}
}

// Configured reports whether a service URL is known.
func (c *Config) Configured() bool {
	return strings.TrimSpace(c.APIURL) != ""
}

// LinkFor returns the link of dir or its nearest linked ancestor.
func (c *Config) LinkFor(dir string) (Link, string, bool) {
	dir = filepath.Clean(dir)
	for {
		if l, ok := c.Links[dir]; ok {
			return l, dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Link{}, "", false
		}
		dir = parent
	}
}

func (c *Config) SetLink(dir string, l Link) {
	if c.Links == nil {
		c.Links = map[string]Link{}
	}
	c.Links[filepath.Clean(dir)] = l
}

// Unlink removes the link of exactly dir and reports whether there was one.
func (c *Config) Unlink(dir string) bool {
	dir = filepath.Clean(dir)
	if _, ok := c.Links[dir]; !ok {
		return false
	}
	delete(c.Links, dir)
	return true
}

// LinkedDirs lists linked directories in lexical order.
func (c *Config) LinkedDirs() []string {
	out := make([]string, 0, len(c.Links))
	for d := range c.Links {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	// The file holds the API key.
	return atomicWriteFile(dir, "config.yaml.*.tmp", path, b, 0o600)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}
