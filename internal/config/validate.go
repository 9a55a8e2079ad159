package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

type ValidationError struct {
	Problems []string
}

func (v *ValidationError) Add(format string, args ...any) {
	v.Problems = append(v.Problems, fmt.Sprintf(format, args...))
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("%d validation error(s)", len(v.Problems))
}

// Validate checks the configuration. Rule categories and severities are
// checked when the catalog is built.
func (c *Config) Validate() error {
	v := &ValidationError{}

	if c.ConfigVersion != 1 {
		v.Add("configVersion must be 1")
	}

	if err := validateListen(c.Server.Listen); err != nil {
		v.Add("server.listen invalid: %v", err)
	}

	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			v.Add("server.tls.certFile required when tls.enabled is true")
		} else if err := requireFile(c.resolvePath(c.Server.TLS.CertFile)); err != nil {
			v.Add("server.tls.certFile invalid: %v", err)
		}
		if c.Server.TLS.KeyFile == "" {
			v.Add("server.tls.keyFile required when tls.enabled is true")
		} else if err := requireFile(c.resolvePath(c.Server.TLS.KeyFile)); err != nil {
			v.Add("server.tls.keyFile invalid: %v", err)
		}
	}

	if c.Metrics.Enabled {
		if err := validateListen(c.Metrics.Listen); err != nil {
			v.Add("metrics.listen invalid: %v", err)
		}
	}

	if err := validateListen(c.Admin.Listen); err != nil {
		v.Add("admin.listen invalid: %v", err)
	} else if c.Admin.Listen == c.Server.Listen {
		v.Add("admin.listen must differ from server.listen")
	}

	if c.Upstream.URL == "" {
		v.Add("upstream.url is required")
	} else if err := validateURL(c.Upstream.URL); err != nil {
		v.Add("upstream.url invalid: %v", err)
	}

	prefixes := map[string]struct{}{}
	for i, route := range c.Routes {
		if route.PathPrefix == "" || !strings.HasPrefix(route.PathPrefix, "/") {
			v.Add("routes[%d].pathPrefix must start with /", i)
		} else if _, exists := prefixes[route.PathPrefix]; exists {
			v.Add("routes[%d].pathPrefix %q is duplicated", i, route.PathPrefix)
		} else {
			prefixes[route.PathPrefix] = struct{}{}
		}
		switch route.Policy {
		case PolicyLenient, PolicyStrict:
		default:
			v.Add("routes[%d].policy must be lenient|strict", i)
		}
	}

	if c.Inspection.MaxBodyBytes < 0 {
		v.Add("inspection.maxBodyBytes must be >= 0")
	}

	c.validateAudit(v)

	ruleIDs := map[string]struct{}{}
	for i, rule := range c.Rules {
		if rule.ID == "" {
			v.Add("rules[%d].id is required", i)
		} else if _, exists := ruleIDs[rule.ID]; exists {
			v.Add("rules[%d].id %q is duplicated", i, rule.ID)
		} else {
			ruleIDs[rule.ID] = struct{}{}
		}
		if rule.Name == "" {
			v.Add("rules[%d].name is required", i)
		}
		if rule.Score < 0 || rule.Score > 100 {
			v.Add("rules[%d].score must be within 0..100", i)
		}
		if len(rule.Patterns) == 0 {
			v.Add("rules[%d].patterns must not be empty", i)
		}
		for j, pattern := range rule.Patterns {
			if pattern == "" {
				v.Add("rules[%d].patterns[%d] is empty", i, j)
			} else if _, err := regexp.Compile(pattern); err != nil {
				v.Add("rules[%d].patterns[%d] invalid: %v", i, j, err)
			}
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		v.Add("logging.level must be trace|debug|info|warn|error")
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		v.Add("logging.format must be json|console")
	}

	if len(v.Problems) > 0 {
		sort.Strings(v.Problems)
		return v
	}
	return nil
}

func (c *Config) validateAudit(v *ValidationError) {
	if c.Audit.Timeout < 0 {
		v.Add("audit.timeout must be >= 0")
	}
	switch c.Audit.Store {
	case "", StoreMemory:
	case StoreJSONL:
		if c.Audit.Path == "" {
			v.Add("audit.path is required for jsonl")
		} else if err := ensureDir(c.resolvePath(c.Audit.Path)); err != nil {
			v.Add("audit.path invalid: %v", err)
		}
	case StoreSQLite:
		if c.Audit.Path == "" && c.Audit.DSN == "" {
			v.Add("audit.path or audit.dsn is required for sqlite")
		}
	case StorePostgres:
		if c.Audit.DSN == "" {
			v.Add("audit.dsn is required for postgres")
		}
	case StoreRedis:
		if c.Audit.Redis.Addr == "" {
			v.Add("audit.redis.addr is required for redis")
		} else if _, _, err := net.SplitHostPort(c.Audit.Redis.Addr); err != nil {
			v.Add("audit.redis.addr invalid: %v", err)
		}
	default:
		v.Add("audit.store must be memory|jsonl|sqlite|postgres|redis")
	}
}

func validateListen(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("address is required")
	}
	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return err
	}
	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("must include scheme and host")
	}
	return nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
