package database

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/satishbabariya/insights-go/internal/core/database/pool"
	"github.com/satishbabariya/insights-go/internal/core/query/dialect"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// Type is the data source type tag backends are dispatched on.
type Type string

const (
	TypePostgres   Type = "postgres"
	TypeMySQL      Type = "mysql"
	TypeMariaDB    Type = "mariadb"
	TypeSQLite     Type = "sqlite"
	TypeDuckDB     Type = "duckdb"
	TypeQueryStore Type = "query_store"
)

// Config describes one data source.
type Config struct {
	Name     string `mapstructure:"name" yaml:"name" validate:"required"`
	Type     Type   `mapstructure:"type" yaml:"type" validate:"required,oneof=postgres mysql mariadb sqlite duckdb query_store"`
	Driver   string `mapstructure:"driver" yaml:"driver,omitempty"`
	Host     string `mapstructure:"host" yaml:"host,omitempty"`
	Port     int    `mapstructure:"port" yaml:"port,omitempty" validate:"gte=0,lte=65535"`
	Database string `mapstructure:"database" yaml:"database,omitempty"`
	Username string `mapstructure:"username" yaml:"username,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	// PasswordFromKeyring reads the password from the system keyring.
	PasswordFromKeyring bool   `mapstructure:"password_from_keyring" yaml:"password_from_keyring,omitempty"`
	SSLMode             string `mapstructure:"ssl_mode" yaml:"ssl_mode,omitempty"`
	// Path is the database file of sqlite, duckdb and query_store sources.
	Path string `mapstructure:"path" yaml:"path,omitempty"`
	// DSN overrides every connection field above.
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`
	// ServerVersion pins the server version used for feature checks. When
	// empty it is read from the server.
	ServerVersion string `mapstructure:"server_version" yaml:"server_version,omitempty"`
	// UnescapePercent overrides the dialect's percent escaping policy for
	// native SQL.
	UnescapePercent *bool       `mapstructure:"unescape_percent" yaml:"unescape_percent,omitempty"`
	Pool            pool.Config `mapstructure:"pool" yaml:"pool,omitempty"`
}

// DialectName returns the SQL dialect of the data source type.
func (c Config) DialectName() domain.SQLDialect {
	switch c.Type {
	case TypePostgres:
		return domain.PostgreSQL
	case TypeMySQL:
		return domain.MySQL
	case TypeMariaDB:
		return domain.MariaDB
	case TypeDuckDB:
		return domain.DuckDB
	default:
		return domain.SQLite
	}
}

// EscapePercent reports whether native SQL has %% collapsed before execution.
func (c Config) EscapePercent(d dialect.Dialect) bool {
	if c.UnescapePercent != nil {
		return *c.UnescapePercent
	}
	return d.UnescapePercent()
}

// PostgresDSN renders a connection URL for lib/pq and pgx.
func (c Config) PostgresDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   hostPort(c.Host, c.Port, 5432),
		Path:   "/" + c.Database,
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	} else {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func hostPort(host string, port, def int) string {
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = def
	}
	return host + ":" + strconv.Itoa(port)
}

// HostPort returns host:port with defaults applied.
func (c Config) HostPort(defaultPort int) string {
	return hostPort(c.Host, c.Port, defaultPort)
}

func (c Config) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Type)
}

// PoolConfig returns the pool settings, or the defaults when none are set.
func (c Config) PoolConfig() pool.Config {
	if c.Pool == (pool.Config{}) {
		return pool.DefaultConfig()
	}
	return c.Pool
}
