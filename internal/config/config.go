// Package config loads neobridge settings from defaults, an optional YAML
// file and the environment.
package config

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mvp-joe/neobridge/internal/api"
	"github.com/mvp-joe/neobridge/internal/graphdb"
	"github.com/mvp-joe/neobridge/internal/schema"
)

// Config represents the complete neobridge configuration.
// It can be loaded from .neobridge/config.yml with environment variable overrides.
type Config struct {
	Neo4j        Neo4jConfig        `yaml:"neo4j" mapstructure:"neo4j"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Transactions TransactionsConfig `yaml:"transactions" mapstructure:"transactions"`
	Schema       SchemaConfig       `yaml:"schema" mapstructure:"schema"`
	Cursor       CursorConfig       `yaml:"cursor" mapstructure:"cursor"`
	History      HistoryConfig      `yaml:"history" mapstructure:"history"`
	Validation   ValidationConfig   `yaml:"validation" mapstructure:"validation"`
}

// Neo4jConfig configures the database connection.
type Neo4jConfig struct {
	URI                     string        `yaml:"uri" mapstructure:"uri"`
	Username                string        `yaml:"username" mapstructure:"username"`
	Password                string        `yaml:"password" mapstructure:"password"`
	Database                string        `yaml:"database" mapstructure:"database"` // empty uses the server default
	MaxConnectionPoolSize   int           `yaml:"max_connection_pool_size" mapstructure:"max_connection_pool_size"`
	ConnectionTimeout       time.Duration `yaml:"connection_timeout" mapstructure:"connection_timeout"`
	MaxTransactionRetryTime time.Duration `yaml:"max_transaction_retry_time" mapstructure:"max_transaction_retry_time"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	AuthToken    string        `yaml:"auth_token" mapstructure:"auth_token"` // empty disables auth
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// TransactionsConfig configures the transaction registry.
type TransactionsConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"` // 0 never expires
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

// SchemaConfig configures schema inspection.
type SchemaConfig struct {
	ConnectSamples           int           `yaml:"connect_samples" mapstructure:"connect_samples"`
	CacheTTL                 time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	ExcludeLabels            []string      `yaml:"exclude_labels" mapstructure:"exclude_labels"`
	ExcludeRelationshipTypes []string      `yaml:"exclude_relationship_types" mapstructure:"exclude_relationship_types"`
}

// CursorConfig configures client-side pagination in the CLI.
type CursorConfig struct {
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
}

// HistoryConfig configures the local query history log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"` // "~/" is expanded
}

// RequiredProperties lists the properties a node with Label must carry on
// creation. Labels are kept as a list rather than map keys because viper
// lowercases map keys and labels are case-sensitive.
type RequiredProperties struct {
	Label      string   `yaml:"label" mapstructure:"label"`
	Properties []string `yaml:"properties" mapstructure:"properties"`
}

// ValidationConfig configures node payload validation.
type ValidationConfig struct {
	Required []RequiredProperties `yaml:"required" mapstructure:"required"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	db := graphdb.DefaultConfig()
	defaults := api.DefaultRequiredProperties()
	required := []RequiredProperties{}
	for _, label := range slices.Sorted(maps.Keys(defaults)) {
		required = append(required, RequiredProperties{Label: label, Properties: defaults[label]})
	}
	return &Config{
		Neo4j: Neo4jConfig{
			URI:                     db.URI,
			Username:                db.Username,
			Password:                db.Password,
			MaxConnectionPoolSize:   db.MaxConnectionPoolSize,
			ConnectionTimeout:       db.ConnectionTimeout,
			MaxTransactionRetryTime: db.MaxTransactionRetryTime,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         5000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Transactions: TransactionsConfig{
			SweepInterval: 30 * time.Second,
		},
		Schema: SchemaConfig{
			ConnectSamples:           schema.DefaultOptions().ConnectSamples,
			ExcludeLabels:            []string{},
			ExcludeRelationshipTypes: []string{},
		},
		Cursor: CursorConfig{
			PageSize: 20,
		},
		History: HistoryConfig{
			Path: "~/.neobridge/history.db",
		},
		Validation: ValidationConfig{
			Required: required,
		},
	}
}

// GraphDB returns the driver configuration.
func (c *Config) GraphDB() graphdb.Config {
	db := graphdb.DefaultConfig()
	db.URI = c.Neo4j.URI
	db.Username = c.Neo4j.Username
	db.Password = c.Neo4j.Password
	db.Database = c.Neo4j.Database
	db.MaxConnectionPoolSize = c.Neo4j.MaxConnectionPoolSize
	db.ConnectionTimeout = c.Neo4j.ConnectionTimeout
	db.MaxTransactionRetryTime = c.Neo4j.MaxTransactionRetryTime
	return db
}

// API returns the HTTP server configuration.
func (c *Config) API() api.Config {
	return api.Config{
		Host:         c.Server.Host,
		Port:         c.Server.Port,
		AuthToken:    c.Server.AuthToken,
		ReadTimeout:  c.Server.ReadTimeout,
		WriteTimeout: c.Server.WriteTimeout,
	}
}

// SchemaOptions returns the inspector options.
func (c *Config) SchemaOptions() schema.Options {
	return schema.Options{
		ConnectSamples:           c.Schema.ConnectSamples,
		ExcludeLabels:            c.Schema.ExcludeLabels,
		ExcludeRelationshipTypes: c.Schema.ExcludeRelationshipTypes,
		CacheTTL:                 c.Schema.CacheTTL,
	}
}

// RequiredProperties returns the required properties keyed by label.
// Entries for the same label are merged.
func (c *Config) RequiredProperties() map[string][]string {
	out := make(map[string][]string, len(c.Validation.Required))
	for _, r := range c.Validation.Required {
		out[r.Label] = append(out[r.Label], r.Properties...)
	}
	return out
}

// HistoryPath returns the history database path with a leading "~/"
// expanded to the user's home directory.
func (c *Config) HistoryPath() (string, error) {
	return expandHome(c.History.Path)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
