package config

import "time"

type Config struct {
	ConfigVersion int              `yaml:"configVersion"`
	Server        ServerConfig     `yaml:"server"`
	Upstream      Upstream         `yaml:"upstream"`
	Routes        []Route          `yaml:"routes"`
	Inspection    InspectionConfig `yaml:"inspection"`
	Audit         AuditConfig      `yaml:"audit"`
	Rules         []Rule           `yaml:"rules"`
	Logging       LoggingConfig    `yaml:"logging"`
	Metrics       MetricsConfig    `yaml:"metrics"`
	Admin         AdminConfig      `yaml:"admin"`

	baseDir string `yaml:"-"`
}

type ServerConfig struct {
	Listen string    `yaml:"listen"`
	TLS    TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"certFile"`
	KeyFile  string `yaml:"keyFile"`
}

type Upstream struct {
	URL string `yaml:"url"`
}

// Route selects the inspection policy for requests under PathPrefix.
type Route struct {
	PathPrefix string `yaml:"pathPrefix"`
	Policy     string `yaml:"policy"`
}

// InspectionConfig bounds body inspection. Bodies larger than MaxBodyBytes are
// rejected with 413; zero selects DefaultMaxBodyBytes.
type InspectionConfig struct {
	MaxBodyBytes      int64  `yaml:"maxBodyBytes"`
	TrustForwardedFor *bool  `yaml:"trustForwardedFor"`
	CountryHeader     string `yaml:"countryHeader"`
}

type AuditConfig struct {
	Store   string        `yaml:"store"`
	Path    string        `yaml:"path"`
	DSN     string        `yaml:"dsn"`
	Timeout time.Duration `yaml:"timeout"`
	Redis   RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// Rule declares a custom detection rule appended after the built-in catalog.
type Rule struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
	Severity string   `yaml:"severity"`
	Score    int      `yaml:"score"`
	Patterns []string `yaml:"patterns"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// AdminConfig is the listener for the stats endpoint. It is kept off the
// public listener.
type AdminConfig struct {
	Listen string `yaml:"listen"`
}

const (
	PolicyLenient = "lenient"
	PolicyStrict  = "strict"
)

const (
	StoreMemory   = "memory"
	StoreJSONL    = "jsonl"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

const (
	DefaultMaxBodyBytes  = 1 << 20
	DefaultCountryHeader = "Cf-Ipcountry"
	DefaultAuditTimeout  = 2 * time.Second
	DefaultRedisKey      = "safego:waf:audit"
	DefaultAdminListen   = "127.0.0.1:9091"
)

// ApplyDefaults fills zero values. Load calls it; tests building a Config by
// hand may call it directly.
func (c *Config) ApplyDefaults() {
	if c.Inspection.MaxBodyBytes == 0 {
		c.Inspection.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Inspection.TrustForwardedFor == nil {
		trust := true
		c.Inspection.TrustForwardedFor = &trust
	}
	if c.Inspection.CountryHeader == "" {
		c.Inspection.CountryHeader = DefaultCountryHeader
	}
	if c.Audit.Store == "" {
		c.Audit.Store = StoreMemory
	}
	if c.Audit.Timeout == 0 {
		c.Audit.Timeout = DefaultAuditTimeout
	}
	if c.Audit.Redis.Key == "" {
		c.Audit.Redis.Key = DefaultRedisKey
	}
	if c.Admin.Listen == "" {
		c.Admin.Listen = DefaultAdminListen
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if len(c.Routes) == 0 {
		c.Routes = []Route{{PathPrefix: "/", Policy: PolicyLenient}}
	}
}

func (i InspectionConfig) TrustsForwardedFor() bool {
	return i.TrustForwardedFor == nil || *i.TrustForwardedFor
}

func (c *Config) BaseDir() string {
	return c.baseDir
}

func (c *Config) ResolvePath(path string) string {
	return c.resolvePath(path)
}
