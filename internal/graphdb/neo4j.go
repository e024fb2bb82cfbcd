package graphdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	labelsQuery            = "CALL db.labels()"
	relationshipTypesQuery = "CALL db.relationshipTypes()"
	componentsQuery        = "CALL dbms.components() YIELD name, versions, edition RETURN name, versions, edition"
)

// Neo4j implements Database on top of the official driver.
// It must be connected with Connect before use.
type Neo4j struct {
	config Config
	driver neo4j.DriverWithContext
	logger *slog.Logger
}

// NewNeo4j creates an unconnected Neo4j database handle.
func NewNeo4j(config Config, logger *slog.Logger) (*Neo4j, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Neo4j{config: config, logger: logger}, nil
}

// Connect creates the driver and verifies connectivity, retrying with
// exponential backoff.
func (c *Neo4j) Connect(ctx context.Context) error {
	auth := neo4j.BasicAuth(c.config.Username, c.config.Password, "")

	driverConfig := func(config *neo4j.Config) {
		if c.config.MaxConnectionPoolSize > 0 {
			config.MaxConnectionPoolSize = c.config.MaxConnectionPoolSize
		}
		config.ConnectionAcquisitionTimeout = c.config.ConnectionTimeout
		config.MaxTransactionRetryTime = c.config.MaxTransactionRetryTime
	}

	retries := c.config.ConnectRetries
	if retries <= 0 {
		retries = 1
	}
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		driver, err := neo4j.NewDriverWithContext(c.config.URI, auth, driverConfig)
		if err == nil {
			err = driver.VerifyConnectivity(ctx)
			if err == nil {
				c.driver = driver
				c.logger.Debug("connected to neo4j", "uri", c.config.URI, "attempt", attempt+1)
				return nil
			}
			_ = driver.Close(ctx)
		}
		lastErr = err
		c.logger.Warn("neo4j connection attempt failed", "uri", c.config.URI, "attempt", attempt+1, "error", err)

		if attempt == retries-1 {
			break
		}

		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > c.config.ConnectionTimeout {
			delay = c.config.ConnectionTimeout
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("connection attempt cancelled: %w", ctx.Err())
		}
	}

	return fmt.Errorf("failed to connect to %s after %d attempts: %w", c.config.URI, retries, lastErr)
}

// Close releases the driver.
func (c *Neo4j) Close(ctx context.Context) error {
	if c.driver == nil {
		return nil
	}
	err := c.driver.Close(ctx)
	c.driver = nil
	if err != nil {
		return fmt.Errorf("failed to close driver: %w", err)
	}
	return nil
}

// Health verifies connectivity with a short timeout.
func (c *Neo4j) Health(ctx context.Context) error {
	if c.driver == nil {
		return ErrNotConnected
	}
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.driver.VerifyConnectivity(healthCtx); err != nil {
		return fmt.Errorf("connectivity check failed: %w", err)
	}
	return nil
}

var _ ReadRunner = (*Neo4j)(nil)

func (c *Neo4j) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.config.Database,
		AccessMode:   mode,
	})
}

// Run executes cypher in an auto-commit transaction and collects every record.
func (c *Neo4j) Run(ctx context.Context, cypher string, params map[string]any) (*Records, error) {
	return c.run(ctx, neo4j.AccessModeWrite, cypher, params)
}

// RunRead is Run on a read-mode session.
func (c *Neo4j) RunRead(ctx context.Context, cypher string, params map[string]any) (*Records, error) {
	return c.run(ctx, neo4j.AccessModeRead, cypher, params)
}

func (c *Neo4j) run(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) (*Records, error) {
	if c.driver == nil {
		return nil, ErrNotConnected
	}
	session := c.session(ctx, mode)
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return collect(ctx, result)
}

// Begin opens an explicit transaction on a dedicated session.
func (c *Neo4j) Begin(ctx context.Context) (Tx, error) {
	if c.driver == nil {
		return nil, ErrNotConnected
	}
	session := c.session(ctx, neo4j.AccessModeWrite)
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		_ = session.Close(ctx)
		return nil, err
	}
	return &neo4jTx{session: session, tx: tx}, nil
}

// Labels lists the node labels known to the database.
func (c *Neo4j) Labels(ctx context.Context) ([]string, error) {
	records, err := c.Run(ctx, labelsQuery, nil)
	if err != nil {
		return nil, err
	}
	return stringColumn(records), nil
}

// RelationshipTypes lists the relationship types known to the database.
func (c *Neo4j) RelationshipTypes(ctx context.Context) ([]string, error) {
	records, err := c.Run(ctx, relationshipTypesQuery, nil)
	if err != nil {
		return nil, err
	}
	return stringColumn(records), nil
}

// ServerInfo reports the first kernel component.
func (c *Neo4j) ServerInfo(ctx context.Context) (ServerInfo, error) {
	records, err := c.Run(ctx, componentsQuery, nil)
	if err != nil {
		return ServerInfo{}, err
	}
	if records.Len() == 0 {
		return ServerInfo{}, nil
	}
	row := records.Values[0]
	info := ServerInfo{}
	if len(row) > 0 {
		info.Name, _ = row[0].(string)
	}
	if len(row) > 1 {
		if versions, ok := row[1].([]any); ok && len(versions) > 0 {
			info.Version, _ = versions[0].(string)
		}
	}
	if len(row) > 2 {
		info.Edition, _ = row[2].(string)
	}
	return info, nil
}

type neo4jTx struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	closed  bool
}

func (t *neo4jTx) Run(ctx context.Context, cypher string, params map[string]any) (*Records, error) {
	result, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return collect(ctx, result)
}

func (t *neo4jTx) Commit(ctx context.Context) error {
	err := t.tx.Commit(ctx)
	return errors.Join(err, t.release(ctx))
}

func (t *neo4jTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	return errors.Join(err, t.release(ctx))
}

func (t *neo4jTx) Close(ctx context.Context) error {
	err := t.tx.Close(ctx)
	return errors.Join(err, t.release(ctx))
}

func (t *neo4jTx) release(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.session.Close(ctx)
}

func collect(ctx context.Context, result neo4j.ResultWithContext) (*Records, error) {
	keys, err := result.Keys()
	if err != nil {
		return nil, err
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return nil, err
	}

	out := &Records{Keys: keys, Values: make([][]any, 0, len(records))}
	for _, record := range records {
		out.Values = append(out.Values, record.Values)
	}
	if summary != nil {
		out.Summary = summarize(summary)
	}
	return out, nil
}

func summarize(summary neo4j.ResultSummary) Summary {
	s := Summary{
		AvailableAfter: summary.ResultAvailableAfter(),
		ConsumedAfter:  summary.ResultConsumedAfter(),
		Counters:       map[string]int{},
	}
	counters := summary.Counters()
	if counters == nil {
		return s
	}
	all := map[string]int{
		"nodesCreated":         counters.NodesCreated(),
		"nodesDeleted":         counters.NodesDeleted(),
		"relationshipsCreated": counters.RelationshipsCreated(),
		"relationshipsDeleted": counters.RelationshipsDeleted(),
		"propertiesSet":        counters.PropertiesSet(),
		"labelsAdded":          counters.LabelsAdded(),
		"labelsRemoved":        counters.LabelsRemoved(),
		"indexesAdded":         counters.IndexesAdded(),
		"indexesRemoved":       counters.IndexesRemoved(),
		"constraintsAdded":     counters.ConstraintsAdded(),
		"constraintsRemoved":   counters.ConstraintsRemoved(),
		"systemUpdates":        counters.SystemUpdates(),
	}
	for name, n := range all {
		if n != 0 {
			s.Counters[name] = n
		}
	}
	return s
}
