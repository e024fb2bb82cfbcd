package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)

	// ConfigFile returns the file used by the last Load, or "" when only
	// defaults and the environment were applied.
	ConfigFile() string
}

type loader struct {
	rootDir    string
	configFile string
	used       string
}

// NewLoader creates a new configuration loader for the given root directory.
// A non-empty configFile is read instead of searching rootDir/.neobridge.
func NewLoader(rootDir, configFile string) Loader {
	return &loader{
		rootDir:    rootDir,
		configFile: configFile,
	}
}

// envBindings maps config keys to extra environment variable names accepted
// alongside the NEOBRIDGE_* form.
var envBindings = map[string][]string{
	"neo4j.uri":      {"NEO4J_URI"},
	"neo4j.username": {"NEO4J_USER", "NEO4J_USERNAME"},
	"neo4j.password": {"NEO4J_PASSWORD"},
	"neo4j.database": {"NEO4J_DATABASE"},
	"server.port":    {"PORT"},
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (NEOBRIDGE_*, then NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD, PORT)
// 2. Config file (.neobridge/config.yml or .neobridge/config.yaml, or the explicit file)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, ".neobridge"))
	}

	v.SetEnvPrefix("NEOBRIDGE")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., NEOBRIDGE_NEO4J_URI)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, names := range envBindings {
		prefixed := "NEOBRIDGE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	setDefaults(v)

	l.used = ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit file must exist; the default location is optional.
		if l.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		l.used = v.ConfigFileUsed()
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (l *loader) ConfigFile() string {
	return l.used
}

// setDefaults configures viper with default values. Every key gets a
// default so that AutomaticEnv sees it during Unmarshal.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("neo4j.uri", defaults.Neo4j.URI)
	v.SetDefault("neo4j.username", defaults.Neo4j.Username)
	v.SetDefault("neo4j.password", defaults.Neo4j.Password)
	v.SetDefault("neo4j.database", defaults.Neo4j.Database)
	v.SetDefault("neo4j.max_connection_pool_size", defaults.Neo4j.MaxConnectionPoolSize)
	v.SetDefault("neo4j.connection_timeout", defaults.Neo4j.ConnectionTimeout)
	v.SetDefault("neo4j.max_transaction_retry_time", defaults.Neo4j.MaxTransactionRetryTime)

	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.auth_token", defaults.Server.AuthToken)
	v.SetDefault("server.read_timeout", defaults.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", defaults.Server.WriteTimeout)

	v.SetDefault("transactions.idle_timeout", defaults.Transactions.IdleTimeout)
	v.SetDefault("transactions.sweep_interval", defaults.Transactions.SweepInterval)

	v.SetDefault("schema.connect_samples", defaults.Schema.ConnectSamples)
	v.SetDefault("schema.cache_ttl", defaults.Schema.CacheTTL)
	v.SetDefault("schema.exclude_labels", defaults.Schema.ExcludeLabels)
	v.SetDefault("schema.exclude_relationship_types", defaults.Schema.ExcludeRelationshipTypes)

	v.SetDefault("cursor.page_size", defaults.Cursor.PageSize)

	v.SetDefault("history.enabled", defaults.History.Enabled)
	v.SetDefault("history.path", defaults.History.Path)

	required := make([]map[string]any, 0, len(defaults.Validation.Required))
	for _, r := range defaults.Validation.Required {
		required = append(required, map[string]any{"label": r.Label, "properties": r.Properties})
	}
	v.SetDefault("validation.required", required)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd, "").Load()
}
