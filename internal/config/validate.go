package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/neobridge/internal/graphdb"
)

var (
	// ErrInvalidNeo4j indicates unusable connection settings
	ErrInvalidNeo4j = errors.New("invalid neo4j settings")

	// ErrInvalidServer indicates invalid HTTP server settings
	ErrInvalidServer = errors.New("invalid server settings")

	// ErrInvalidTransactions indicates invalid transaction registry settings
	ErrInvalidTransactions = errors.New("invalid transaction settings")

	// ErrInvalidSchema indicates invalid schema inspection settings
	ErrInvalidSchema = errors.New("invalid schema settings")

	// ErrInvalidCursor indicates an invalid page size
	ErrInvalidCursor = errors.New("invalid cursor settings")

	// ErrInvalidHistory indicates invalid history settings
	ErrInvalidHistory = errors.New("invalid history settings")

	// ErrInvalidValidation indicates malformed required-property rules
	ErrInvalidValidation = errors.New("invalid validation rules")
)

// Validate checks that the configuration is valid and complete. Every
// problem is reported; errors.Is matches each sentinel involved.
func Validate(cfg *Config) error {
	var errs []error
	errs = append(errs, validateNeo4j(&cfg.Neo4j)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTransactions(&cfg.Transactions)...)
	errs = append(errs, validateSchema(&cfg.Schema)...)

	if cfg.Cursor.PageSize < 1 {
		errs = append(errs, fmt.Errorf("%w: page_size must be at least 1, got %d", ErrInvalidCursor, cfg.Cursor.PageSize))
	}
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		errs = append(errs, fmt.Errorf("%w: path is required when history is enabled", ErrInvalidHistory))
	}
	errs = append(errs, validateRequired(cfg.Validation.Required)...)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateNeo4j(cfg *Neo4jConfig) []error {
	var errs []error
	if strings.TrimSpace(cfg.URI) == "" {
		errs = append(errs, fmt.Errorf("%w: uri is required", ErrInvalidNeo4j))
	}
	if strings.TrimSpace(cfg.Username) == "" {
		errs = append(errs, fmt.Errorf("%w: username is required", ErrInvalidNeo4j))
	}
	if cfg.MaxConnectionPoolSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_connection_pool_size must be positive, got %d", ErrInvalidNeo4j, cfg.MaxConnectionPoolSize))
	}
	if cfg.ConnectionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: connection_timeout must be positive, got %s", ErrInvalidNeo4j, cfg.ConnectionTimeout))
	}
	if cfg.MaxTransactionRetryTime <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_transaction_retry_time must be positive, got %s", ErrInvalidNeo4j, cfg.MaxTransactionRetryTime))
	}
	return errs
}

func validateServer(cfg *ServerConfig) []error {
	var errs []error
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalidServer, cfg.Port))
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: timeouts cannot be negative", ErrInvalidServer))
	}
	return errs
}

func validateTransactions(cfg *TransactionsConfig) []error {
	var errs []error
	if cfg.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: idle_timeout cannot be negative, got %s", ErrInvalidTransactions, cfg.IdleTimeout))
	}
	if cfg.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("%w: sweep_interval must be positive, got %s", ErrInvalidTransactions, cfg.SweepInterval))
	}
	return errs
}

func validateSchema(cfg *SchemaConfig) []error {
	var errs []error
	if cfg.ConnectSamples < 1 {
		errs = append(errs, fmt.Errorf("%w: connect_samples must be at least 1, got %d", ErrInvalidSchema, cfg.ConnectSamples))
	}
	if cfg.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_ttl cannot be negative, got %s", ErrInvalidSchema, cfg.CacheTTL))
	}
	for _, pattern := range append(append([]string{}, cfg.ExcludeLabels...), cfg.ExcludeRelationshipTypes...) {
		if _, err := glob.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("%w: bad exclude pattern %q: %v", ErrInvalidSchema, pattern, err))
		}
	}
	return errs
}

func validateRequired(rules []RequiredProperties) []error {
	var errs []error
	for i, r := range rules {
		if !graphdb.IsIdentifier(r.Label) {
			errs = append(errs, fmt.Errorf("%w: required[%d].label %q is not a valid label", ErrInvalidValidation, i, r.Label))
		}
		if len(r.Properties) == 0 {
			errs = append(errs, fmt.Errorf("%w: required[%d] lists no properties", ErrInvalidValidation, i))
		}
	}
	return errs
}
