// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package main

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/Srithwak/Audio-Draft/internal/auth"
	"github.com/Srithwak/Audio-Draft/internal/logging"
	"github.com/Srithwak/Audio-Draft/internal/store"
	"github.com/Srithwak/Audio-Draft/internal/xdg"
)

// envPrefix namespaces environment overrides, e.g. AUDIODRAFT_HTTP_ADDR.
const envPrefix = "AUDIODRAFT_"

const redacted = "[REDACTED]"

// Session store backends.
const (
	sessionStoreMemory   = "memory"
	sessionStorePostgres = "postgres"
)

// Config is the effective configuration after all layers are merged.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Session  SessionConfig  `koanf:"session"`
	Hash     HashConfig     `koanf:"hash"`
	Log      LogConfig      `koanf:"log"`
}

// DatabaseConfig locates PostgreSQL. URL wins over the individual fields.
type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	Name           string        `koanf:"name"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	SSLMode        string        `koanf:"sslmode"`
	OpTimeout      time.Duration `koanf:"op_timeout"`
	ConnectRetries uint64        `koanf:"connect_retries"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr        string   `koanf:"addr"`
	CORSOrigins []string `koanf:"cors_origins"`
	StaticDir   string   `koanf:"static_dir"`
}

// MetricsConfig configures the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// SessionConfig configures session storage and lifetime.
type SessionConfig struct {
	Store         string        `koanf:"store"`
	TTL           time.Duration `koanf:"ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
	CookieName    string        `koanf:"cookie_name"`
	SecureCookie  bool          `koanf:"secure_cookie"`
}

// HashConfig selects the password hashing algorithm.
type HashConfig struct {
	Algorithm  string `koanf:"algorithm"`
	BcryptCost int    `koanf:"bcrypt_cost"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DefaultConfig returns the built-in configuration layer.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			Name:           "audiodraft",
			User:           "postgres",
			OpTimeout:      5 * time.Second,
			ConnectRetries: 5,
		},
		HTTP: HTTPConfig{
			Addr:        "127.0.0.1:8080",
			CORSOrigins: []string{"*"},
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Session: SessionConfig{
			Store:         sessionStorePostgres,
			SweepInterval: time.Minute,
			CookieName:    "audiodraft_session",
		},
		Hash: HashConfig{
			Algorithm:  auth.AlgorithmBcrypt,
			BcryptCost: auth.DefaultBcryptCost,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Map renders c as nested maps keyed like the configuration file.
func (c Config) Map() map[string]any {
	return map[string]any{
		"database": map[string]any{
			"url":             c.Database.URL,
			"host":            c.Database.Host,
			"port":            c.Database.Port,
			"name":            c.Database.Name,
			"user":            c.Database.User,
			"password":        c.Database.Password,
			"sslmode":         c.Database.SSLMode,
			"op_timeout":      c.Database.OpTimeout.String(),
			"connect_retries": c.Database.ConnectRetries,
		},
		"http": map[string]any{
			"addr":         c.HTTP.Addr,
			"cors_origins": append([]string(nil), c.HTTP.CORSOrigins...),
			"static_dir":   c.HTTP.StaticDir,
		},
		"metrics": map[string]any{
			"addr": c.Metrics.Addr,
		},
		"session": map[string]any{
			"store":          c.Session.Store,
			"ttl":            c.Session.TTL.String(),
			"sweep_interval": c.Session.SweepInterval.String(),
			"cookie_name":    c.Session.CookieName,
			"secure_cookie":  c.Session.SecureCookie,
		},
		"hash": map[string]any{
			"algorithm":   c.Hash.Algorithm,
			"bcrypt_cost": c.Hash.BcryptCost,
		},
		"log": map[string]any{
			"level":  c.Log.Level,
			"format": c.Log.Format,
		},
	}
}

// Validate rejects settings no command can run with.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "log.level").Wrap(err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("key", "log.format").
			Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch c.Session.Store {
	case sessionStoreMemory, sessionStorePostgres:
	default:
		return oops.Code("CONFIG_INVALID").
			With("key", "session.store").
			Errorf("session.store must be %q or %q, got %q", sessionStoreMemory, sessionStorePostgres, c.Session.Store)
	}
	if c.Session.TTL < 0 {
		return oops.Code("CONFIG_INVALID").With("key", "session.ttl").Errorf("session.ttl cannot be negative")
	}
	if c.Session.TTL > 0 && c.Session.SweepInterval <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "session.sweep_interval").
			Errorf("session.sweep_interval must be positive when session.ttl is set")
	}
	if _, err := auth.NewPasswordHasher(c.Hash.Algorithm, c.Hash.BcryptCost); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "hash").Wrap(err)
	}
	if c.Database.URL == "" && c.Database.Name == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "database.name").
			Errorf("database.url or database.name is required")
	}
	return nil
}

// ConnParams returns the database location.
func (c Config) ConnParams() store.ConnParams {
	return store.ConnParams{
		URL:      c.Database.URL,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Name:     c.Database.Name,
		User:     c.Database.User,
		Password: c.Database.Password,
		SSLMode:  c.Database.SSLMode,
	}
}

// Redacted returns a copy of c safe to print.
func (c Config) Redacted() Config {
	if c.Database.Password != "" {
		c.Database.Password = redacted
	}
	if c.Database.URL != "" {
		if u, err := url.Parse(c.Database.URL); err == nil {
			c.Database.URL = u.Redacted()
		} else {
			c.Database.URL = redacted
		}
	}
	c.HTTP.CORSOrigins = append([]string(nil), c.HTTP.CORSOrigins...)
	return c
}

// configFlagKeys maps command-line flags onto configuration keys.
var configFlagKeys = map[string]string{
	"database-url":  "database.url",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"http-addr":     "http.addr",
	"metrics-addr":  "metrics.addr",
	"session-store": "session.store",
	"session-ttl":   "session.ttl",
	"static-dir":    "http.static_dir",
}

// legacyEnvKeys are the unprefixed variables a plain .env file carries.
var legacyEnvKeys = map[string]string{
	"DATABASE_URL": "database.url",
	"DB_HOST":      "database.host",
	"DB_PORT":      "database.port",
	"DB_NAME":      "database.name",
	"DB_USER":      "database.user",
	"DB_PASSWORD":  "database.password",
}

// listKeys hold comma separated values in the environment.
var listKeys = map[string]bool{"http.cors_origins": true}

// configSources names where loadConfig reads from.
type configSources struct {
	// File is an explicit config file path. Empty means the XDG default,
	// which may be absent.
	File string
	// EnvFile is a dotenv file merged into the environment. Absent is fine.
	EnvFile string
	Flags   *pflag.FlagSet
}

// loadConfig merges defaults, the YAML file, the environment and changed
// flags, in that order of increasing precedence.
func loadConfig(src configSources) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(DefaultConfig().Map(), "."), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("layer", "defaults").Wrap(err)
	}

	if err := loadConfigFile(k, src.File); err != nil {
		return Config{}, err
	}

	if src.EnvFile != "" {
		if err := godotenv.Load(src.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("layer", "dotenv").
				With("path", src.EnvFile).
				Wrap(err)
		}
	}

	known := configKeys()
	if err := k.Load(env.ProviderWithValue("", ".", func(name, value string) (string, any) {
		key, ok := legacyEnvKeys[name]
		if !ok {
			return "", nil
		}
		return key, envValue(key, value)
	}), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("layer", "legacy env").Wrap(err)
	}
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", func(name, value string) (string, any) {
		key, ok := known[strings.ToUpper(strings.TrimPrefix(name, envPrefix))]
		if !ok {
			return "", nil
		}
		return key, envValue(key, value)
	}), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("layer", "env").Wrap(err)
	}

	if src.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(src.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := configFlagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, f.Value.String()
		}), nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("layer", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadConfigFile(k *koanf.Koanf, path string) error {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = xdg.ConfigFile(); err != nil {
			return nil //nolint:nilerr // no home directory means no default file
		}
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return oops.Code("CONFIG_LOAD_FAILED").With("layer", "file").With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("layer", "file").With("path", path).Wrap(err)
	}
	return nil
}

func envValue(key, value string) any {
	if !listKeys[key] {
		return value
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// configKeys maps each environment suffix (DATABASE_OP_TIMEOUT) to its key
// (database.op_timeout).
func configKeys() map[string]string {
	out := map[string]string{}
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for name, v := range m {
			key := prefix + name
			if nested, ok := v.(map[string]any); ok {
				walk(key+".", nested)
				continue
			}
			out[strings.ToUpper(strings.ReplaceAll(key, ".", "_"))] = key
		}
	}
	walk("", DefaultConfig().Map())
	return out
}

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, the config file,
the environment and flags. The database password is redacted.

Every key can be set in the environment as AUDIODRAFT_<KEY>, with dots
replaced by underscores. Keys:
  ` + strings.Join(sortedKeys(), "\n  "),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(sourcesFor(cmd))
			if err != nil {
				return err
			}
			out, err := yamlv3.Marshal(cfg.Redacted().Map())
			if err != nil {
				return oops.Code("CONFIG_RENDER_FAILED").Wrap(err)
			}
			cmd.Print(string(out))
			return nil
		},
	}
}

// sortedKeys lists every configuration key.
func sortedKeys() []string {
	var keys []string
	for _, key := range configKeys() {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
