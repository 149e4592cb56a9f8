// Package config loads connection settings from a YAML file and the
// environment, and opens a mapping schema from them.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/louisdevie/kiwiq/dialect/sql"
	"github.com/louisdevie/kiwiq/mapping"
)

// FileName is the name of the config file.
const FileName = "kiwiq.yaml"

// FileNameAlt is the alternate name of the config file.
const FileNameAlt = "kiwiq.yml"

// EnvPrefix prefixes the environment variables overriding the file:
// KIWIQ_DSN overrides dsn, KIWIQ_SLOW_QUERY_THRESHOLD overrides
// slow_query_threshold.
const EnvPrefix = "KIWIQ_"

// Default configuration values.
const (
	DefaultDialect            = "sqlite"
	DefaultNaming             = "exact"
	DefaultSlowQueryThreshold = 100 * time.Millisecond
)

// Config holds the settings of one database.
type Config struct {
	// Dialect is the name of a registered dialect: mysql, postgres or sqlite.
	Dialect string `koanf:"dialect" yaml:"dialect"`
	// Driver is the database/sql driver name. It defaults to the driver
	// registered for the dialect.
	Driver string `koanf:"driver" yaml:"driver,omitempty"`
	DSN    string `koanf:"dsn" yaml:"dsn"`
	// Naming is the default naming strategy of entities: exact or snake.
	Naming string `koanf:"naming" yaml:"naming,omitempty"`
	// Debug logs every command at debug level.
	Debug bool `koanf:"debug" yaml:"debug,omitempty"`
	// SlowQueryThreshold is the duration above which commands are logged
	// as slow.
	SlowQueryThreshold time.Duration `koanf:"slow_query_threshold" yaml:"slow_query_threshold,omitempty"`
}

// driverNames maps dialect names to the database/sql drivers imported by
// this package.
var driverNames = map[string]string{
	"mysql":    "mysql",
	"postgres": "postgres",
	"sqlite":   "sqlite",
}

var namings = map[string]mapping.Naming{
	"exact": mapping.Exact,
	"snake": mapping.Snake,
}

// ApplyDefaults fills the unset fields of c.
func (c *Config) ApplyDefaults() {
	if c == nil {
		return
	}
	if c.Dialect == "" {
		c.Dialect = DefaultDialect
	}
	c.Dialect = strings.ToLower(c.Dialect)
	if c.Driver == "" {
		c.Driver = driverNames[c.Dialect]
	}
	if c.Naming == "" {
		c.Naming = DefaultNaming
	}
	if c.SlowQueryThreshold == 0 {
		c.SlowQueryThreshold = DefaultSlowQueryThreshold
	}
}

// Validate reports every invalid field of c.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := sql.LookupDialect(c.Dialect); !ok {
		errs = append(errs, fmt.Errorf("config: unknown dialect %q (available: %s)",
			c.Dialect, strings.Join(sql.Dialects(), ", ")))
	}
	if c.Driver == "" {
		errs = append(errs, fmt.Errorf("config: no driver for dialect %q", c.Dialect))
	}
	if c.DSN == "" {
		errs = append(errs, errors.New("config: dsn is required"))
	}
	if _, ok := namings[strings.ToLower(c.Naming)]; !ok {
		errs = append(errs, fmt.Errorf("config: unknown naming %q", c.Naming))
	}
	if c.SlowQueryThreshold < 0 {
		errs = append(errs, fmt.Errorf("config: negative slow_query_threshold %s", c.SlowQueryThreshold))
	}
	return errors.Join(errs...)
}

// NamingStrategy returns the naming strategy selected by c.Naming.
func (c *Config) NamingStrategy() mapping.Naming {
	if n, ok := namings[strings.ToLower(c.Naming)]; ok {
		return n
	}
	return mapping.Exact
}

// Load reads the config file at path, applies the environment overrides and
// the defaults, and validates the result. An empty path loads only the
// environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	// KIWIQ_SLOW_QUERY_THRESHOLD -> slow_query_threshold
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromDir loads the config file of dir, or only the environment when
// dir has none.
func LoadFromDir(dir string) (*Config, error) {
	return Load(FindFile(dir))
}

// FindFile returns the path of the config file in dir, or "" if there is
// none.
func FindFile(dir string) string {
	for _, name := range []string{FileName, FileNameAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Write encodes c as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yamlv3.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return enc.Close()
}
