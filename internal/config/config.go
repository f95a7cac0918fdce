// Package config loads the application configuration with viper: a YAML
// file, INSIGHTS_* environment variables, .env files and keyring secrets.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/satishbabariya/insights-go/internal/adapters/database"
	"github.com/satishbabariya/insights-go/internal/adapters/telemetry"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/satishbabariya/insights-go/internal/debug"
)

// AppFs is the filesystem configuration, .env and query files are read from.
var AppFs = afero.NewOsFs()

const (
	// FileName is the configuration file name without extension.
	FileName = ".insights-go"
	// EnvPrefix prefixes environment overrides: INSIGHTS_SETTINGS_QUERY_RESULT_LIMIT.
	EnvPrefix = "INSIGHTS"
	// QueryStoreName is the name the query store data source is registered under.
	QueryStoreName = "query_store"
)

// Config is the application configuration.
type Config struct {
	Settings    SettingsConfig    `mapstructure:"settings" yaml:"settings"`
	Metadata    MetadataConfig    `mapstructure:"metadata" yaml:"metadata"`
	QueryStore  QueryStoreConfig  `mapstructure:"query_store" yaml:"query_store"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Telemetry   telemetry.Config  `mapstructure:"telemetry" yaml:"telemetry"`
	DataSources []database.Config `mapstructure:"data_sources" yaml:"data_sources" validate:"dive"`
}

// SettingsConfig holds the query settings.
type SettingsConfig struct {
	AllowSubquery    bool          `mapstructure:"allow_subquery" yaml:"allow_subquery"`
	QueryResultLimit int           `mapstructure:"query_result_limit" yaml:"query_result_limit" validate:"gte=0"`
	FiscalYearStart  string        `mapstructure:"fiscal_year_start" yaml:"fiscal_year_start" validate:"omitempty,datetime=01-02"`
	ResultsCacheSize int           `mapstructure:"results_cache_size" yaml:"results_cache_size" validate:"gte=0"`
	ResultsCacheTTL  time.Duration `mapstructure:"results_cache_ttl" yaml:"results_cache_ttl"`
}

// MetadataConfig locates the metadata database.
type MetadataConfig struct {
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
}

// QueryStoreConfig locates the query store database.
type QueryStoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig configures the debug logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// FiscalStart returns the month and day the fiscal year starts on.
func (s SettingsConfig) FiscalStart() (time.Month, int) {
	t, err := time.Parse("01-02", s.FiscalYearStart)
	if err != nil {
		return time.April, 1
	}
	return t.Month(), t.Day()
}

// DataSource returns the configuration of the named data source.
func (c *Config) DataSource(name string) (database.Config, bool) {
	for _, ds := range c.DataSources {
		if ds.Name == name {
			return ds, true
		}
	}
	return database.Config{}, false
}

var validate = validator.New()

// Validate checks field constraints and data source name uniqueness.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	seen := map[string]bool{QueryStoreName: true}
	for _, ds := range c.DataSources {
		if seen[ds.Name] {
			return fmt.Errorf("invalid configuration: data source %s is defined twice or uses a reserved name", ds.Name)
		}
		seen[ds.Name] = true
	}
	return nil
}

// Manager owns the viper instance and the current configuration. It
// implements domain.Settings; values are read under a lock so a reload is
// seen by the next execution.
type Manager struct {
	v  *viper.Viper
	mu sync.RWMutex
	c  *Config

	handlers []func(*Config)
}

// Load reads the configuration. An explicit path must exist; otherwise
// .insights-go.yaml is searched in the working directory, $HOME and
// $HOME/.config/insights-go, and a missing file is not an error.
func Load(path string) (*Manager, error) {
	loadDotEnv()

	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to find home directory: %w", err)
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigType("yaml")
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("failed to expand %s: %w", path, err)
		}
		v.SetConfigFile(expanded)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "insights-go"))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, home)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read configuration: %w", err)
		}
	}

	m := &Manager{v: v}
	if err := m.Reload(); err != nil {
		return nil, err
	}
	if f := v.ConfigFileUsed(); f != "" {
		debug.Debug("Loaded configuration", "file", f)
	}
	return m, nil
}

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("settings.allow_subquery", false)
	v.SetDefault("settings.query_result_limit", domain.DefaultMaxRows)
	v.SetDefault("settings.fiscal_year_start", "04-01")
	v.SetDefault("settings.results_cache_size", 128)
	v.SetDefault("settings.results_cache_ttl", 10*time.Minute)
	v.SetDefault("metadata.path", filepath.Join(home, ".insights-go", "insights.db"))
	v.SetDefault("query_store.path", filepath.Join(home, ".insights-go", "query_store.db"))
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")
	v.SetDefault("telemetry.type", "noop")
	v.SetDefault("telemetry.namespace", "insights")
	v.SetDefault("telemetry.metrics_file", "")
}

// loadDotEnv sets variables from .env, then lets .env.local override them.
// Variables already in the environment win over .env.
func loadDotEnv() {
	for _, f := range []struct {
		name      string
		overwrite bool
	}{{".env", false}, {".env.local", true}} {
		data, err := afero.ReadFile(AppFs, f.name)
		if err != nil {
			continue
		}
		vars, err := godotenv.Parse(bytes.NewReader(data))
		if err != nil {
			debug.Warn("Failed to parse env file", "file", f.name, "error", err)
			continue
		}
		for k, val := range vars {
			if _, set := os.LookupEnv(k); set && !f.overwrite {
				continue
			}
			_ = os.Setenv(k, val)
		}
	}
}

// Reload decodes, resolves and validates the configuration from viper's
// current state and notifies change handlers.
func (m *Manager) Reload() error {
	var c Config
	if err := m.v.Unmarshal(&c); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	for i := range c.DataSources {
		if err := resolvePaths(&c.DataSources[i]); err != nil {
			return err
		}
		if err := ResolvePassword(&c.DataSources[i]); err != nil {
			return err
		}
	}
	var err error
	if c.Metadata.Path, err = homedir.Expand(c.Metadata.Path); err != nil {
		return fmt.Errorf("failed to expand metadata path: %w", err)
	}
	if c.QueryStore.Path, err = homedir.Expand(c.QueryStore.Path); err != nil {
		return fmt.Errorf("failed to expand query store path: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.c = &c
	handlers := append([]func(*Config){}, m.handlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		h(&c)
	}
	return nil
}

func resolvePaths(ds *database.Config) error {
	if ds.Path == "" {
		return nil
	}
	p, err := homedir.Expand(ds.Path)
	if err != nil {
		return fmt.Errorf("failed to expand path of %s: %w", ds.Name, err)
	}
	ds.Path = p
	return nil
}

// Config returns the current configuration.
func (m *Manager) Config() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.c
}

// AllowSubquery implements domain.Settings.
func (m *Manager) AllowSubquery() bool {
	return m.Config().Settings.AllowSubquery
}

// QueryResultLimit implements domain.Settings.
func (m *Manager) QueryResultLimit() int {
	if n := m.Config().Settings.QueryResultLimit; n > 0 {
		return n
	}
	return domain.DefaultMaxRows
}

// Override sets key above every other source, as a command line flag does,
// and reloads.
func (m *Manager) Override(key string, value any) error {
	m.v.Set(key, value)
	return m.Reload()
}

// FileUsed returns the configuration file read, if any.
func (m *Manager) FileUsed() string {
	return m.v.ConfigFileUsed()
}

// OnChange registers a handler called after every successful reload.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
}

// Watch reloads the configuration whenever its file changes. It does nothing
// when no file was read.
func (m *Manager) Watch() {
	if m.v.ConfigFileUsed() == "" {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := m.Reload(); err != nil {
			debug.Error("Failed to reload configuration", "file", e.Name, "error", err)
			return
		}
		debug.Info("Reloaded configuration", "file", e.Name)
	})
	m.v.WatchConfig()
}

// AddDataSource appends ds to the configuration and writes the file back. A
// password kept in the keyring is not written.
func (m *Manager) AddDataSource(ds database.Config) error {
	c := *m.Config()
	if _, exists := c.DataSource(ds.Name); exists {
		return fmt.Errorf("data source %s already exists", ds.Name)
	}
	c.DataSources = append(append([]database.Config{}, c.DataSources...), ds)
	if err := c.Validate(); err != nil {
		return err
	}

	stored := make([]map[string]any, 0, len(c.DataSources))
	for _, d := range c.DataSources {
		stored = append(stored, dataSourceMap(d))
	}
	m.v.Set("data_sources", stored)

	file := m.v.ConfigFileUsed()
	if file == "" {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		dir := filepath.Join(home, ".config", "insights-go")
		if err := AppFs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		file = filepath.Join(dir, FileName+".yaml")
	}
	if err := m.v.WriteConfigAs(file); err != nil {
		return fmt.Errorf("failed to write %s: %w", file, err)
	}
	if m.v.ConfigFileUsed() == "" {
		m.v.SetConfigFile(file)
	}
	return m.Reload()
}

func dataSourceMap(d database.Config) map[string]any {
	out := map[string]any{"name": d.Name, "type": string(d.Type)}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("driver", d.Driver)
	set("host", d.Host)
	set("database", d.Database)
	set("username", d.Username)
	set("ssl_mode", d.SSLMode)
	set("path", d.Path)
	set("dsn", d.DSN)
	set("server_version", d.ServerVersion)
	if d.Port != 0 {
		out["port"] = d.Port
	}
	if d.PasswordFromKeyring {
		out["password_from_keyring"] = true
	} else {
		set("password", d.Password)
	}
	if d.UnescapePercent != nil {
		out["unescape_percent"] = *d.UnescapePercent
	}
	return out
}
