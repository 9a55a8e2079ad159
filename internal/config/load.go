package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads, decodes and defaults the file at path. Connection fields may
// reference environment variables as ${NAME}.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.baseDir = filepath.Dir(absPath)
	cfg.expandEnv()
	cfg.ApplyDefaults()

	return &cfg, nil
}

// expandEnv leaves rule patterns alone; "$" is a regex anchor there.
func (c *Config) expandEnv() {
	for _, field := range []*string{
		&c.Upstream.URL,
		&c.Audit.Path,
		&c.Audit.DSN,
		&c.Audit.Redis.Addr,
		&c.Audit.Redis.Password,
	} {
		*field = os.ExpandEnv(*field)
	}
}

func (c *Config) resolvePath(p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	base := c.baseDir
	if base == "" {
		base = "."
	}
	return filepath.Join(base, p)
}
