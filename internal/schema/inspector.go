// Package schema infers a graph schema by sampling the database.
package schema

// Implementation Plan:
// 1. Inspector - lists labels and relationship types through the catalog procedures
// 2. Sample one node per label and one relationship per type for property types
// 3. Sample up to N endpoint pairs per relationship type for connected labels
// 4. Exclude labels/types matching glob patterns
// 5. Optional TTL cache of the last descriptor (otter), invalidated on reconfigure

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/maypok86/otter"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/mvp-joe/neobridge/internal/format"
	"github.com/mvp-joe/neobridge/internal/graphdb"
	"github.com/mvp-joe/neobridge/internal/protocol"
)

const cacheKey = "schema"

// Catalog is the part of the database the inspector needs.
type Catalog interface {
	graphdb.Runner
	Labels(ctx context.Context) ([]string, error)
	RelationshipTypes(ctx context.Context) ([]string, error)
}

// Options controls sampling, filtering and caching.
type Options struct {
	// ConnectSamples is how many endpoint pairs are read per relationship type.
	ConnectSamples int
	// ExcludeLabels and ExcludeRelationshipTypes are glob patterns.
	ExcludeLabels            []string
	ExcludeRelationshipTypes []string
	// CacheTTL caches the descriptor for this long. Zero disables caching.
	CacheTTL time.Duration
}

// DefaultOptions returns the default inspection options.
func DefaultOptions() Options {
	return Options{ConnectSamples: 5}
}

// Inspector infers schema descriptors.
type Inspector struct {
	db     Catalog
	logger *slog.Logger

	mu            sync.RWMutex
	opts          Options
	excludeLabels []glob.Glob
	excludeTypes  []glob.Glob
	cache         *otter.Cache[string, *Descriptor]
}

// NewInspector creates an Inspector. It fails when a pattern does not compile.
func NewInspector(db Catalog, opts Options, logger *slog.Logger) (*Inspector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	i := &Inspector{db: db, logger: logger}
	if err := i.Configure(opts); err != nil {
		return nil, err
	}
	return i, nil
}

// Configure replaces the options and drops any cached descriptor.
func (i *Inspector) Configure(opts Options) error {
	if opts.ConnectSamples <= 0 {
		opts.ConnectSamples = DefaultOptions().ConnectSamples
	}
	labels, err := compileAll(opts.ExcludeLabels)
	if err != nil {
		return err
	}
	types, err := compileAll(opts.ExcludeRelationshipTypes)
	if err != nil {
		return err
	}

	var cache *otter.Cache[string, *Descriptor]
	if opts.CacheTTL > 0 {
		c, err := otter.MustBuilder[string, *Descriptor](1).WithTTL(opts.CacheTTL).Build()
		if err != nil {
			return fmt.Errorf("failed to build schema cache: %w", err)
		}
		cache = &c
	}

	i.mu.Lock()
	old := i.cache
	i.opts = opts
	i.excludeLabels = labels
	i.excludeTypes = types
	i.cache = cache
	i.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// Invalidate drops the cached descriptor, if any.
func (i *Inspector) Invalidate() {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.cache != nil {
		i.cache.Delete(cacheKey)
	}
}

// Close releases the cache.
func (i *Inspector) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cache != nil {
		i.cache.Close()
		i.cache = nil
	}
}

// Inspect returns the schema descriptor. Failures are reported as
// SCHEMA_ERROR.
func (i *Inspector) Inspect(ctx context.Context) (*Descriptor, error) {
	i.mu.RLock()
	opts := i.opts
	excludeLabels := i.excludeLabels
	excludeTypes := i.excludeTypes
	cache := i.cache
	i.mu.RUnlock()

	if cache != nil {
		if d, ok := cache.Get(cacheKey); ok {
			return d, nil
		}
	}

	start := time.Now()
	d, err := i.inspect(ctx, opts, excludeLabels, excludeTypes)
	if err != nil {
		return nil, protocol.Wrap(protocol.CodeSchema, err)
	}
	i.logger.Debug("schema inspected",
		"labels", len(d.Nodes),
		"relationship_types", len(d.Relationships),
		"duration", time.Since(start))

	if cache != nil {
		cache.Set(cacheKey, d)
	}
	return d, nil
}

func (i *Inspector) inspect(ctx context.Context, opts Options, excludeLabels, excludeTypes []glob.Glob) (*Descriptor, error) {
	d := NewDescriptor()

	labels, err := i.db.Labels(ctx)
	if err != nil {
		return nil, err
	}
	for _, label := range labels {
		if matchesAny(excludeLabels, label) {
			continue
		}
		props, err := i.sampleNode(ctx, label)
		if err != nil {
			return nil, err
		}
		d.Nodes[label] = NodeSchema{Properties: props}
	}

	types, err := i.db.RelationshipTypes(ctx)
	if err != nil {
		return nil, err
	}
	for _, relType := range types {
		if matchesAny(excludeTypes, relType) {
			continue
		}
		rel, err := i.sampleRelationship(ctx, relType, opts.ConnectSamples)
		if err != nil {
			return nil, err
		}
		d.Relationships[relType] = rel
	}

	return d, nil
}

func (i *Inspector) sampleNode(ctx context.Context, label string) (map[string]string, error) {
	records, err := i.db.Run(ctx, "MATCH (n:"+graphdb.QuoteIdentifier(label)+") RETURN n LIMIT 1", nil)
	if err != nil {
		return nil, err
	}
	return propertyTypes(first(records)), nil
}

func (i *Inspector) sampleRelationship(ctx context.Context, relType string, samples int) (RelationshipSchema, error) {
	quoted := graphdb.QuoteIdentifier(relType)
	rel := RelationshipSchema{
		Properties: map[string]string{},
		Connects:   Connects{{}, {}},
	}

	records, err := i.db.Run(ctx, "MATCH ()-[r:"+quoted+"]->() RETURN r LIMIT 1", nil)
	if err != nil {
		return rel, err
	}
	sample := first(records)
	if sample == nil {
		return rel, nil
	}
	rel.Properties = propertyTypes(sample)

	pairs, err := i.db.Run(ctx,
		"MATCH (a)-[r:"+quoted+"]->(b) RETURN labels(a) AS from_labels, labels(b) AS to_labels LIMIT $samples",
		map[string]any{"samples": samples})
	if err != nil {
		return rel, err
	}
	from, to := map[string]struct{}{}, map[string]struct{}{}
	for _, row := range pairs.Values {
		if len(row) < 2 {
			continue
		}
		addLabels(from, row[0])
		addLabels(to, row[1])
	}
	rel.Connects = Connects{sortedKeys(from), sortedKeys(to)}
	return rel, nil
}

// first returns the first column of the first record, or nil.
func first(records *graphdb.Records) any {
	if records.Len() == 0 || len(records.Values[0]) == 0 {
		return nil
	}
	return records.Values[0][0]
}

func propertyTypes(entity any) map[string]string {
	var props map[string]any
	switch e := entity.(type) {
	case dbtype.Node:
		props = e.Props
	case *dbtype.Node:
		props = e.Props
	case dbtype.Relationship:
		props = e.Props
	case *dbtype.Relationship:
		props = e.Props
	}
	out := make(map[string]string, len(props))
	for name, v := range props {
		out[name] = format.TypeName(v)
	}
	return out
}

func addLabels(set map[string]struct{}, v any) {
	switch labels := v.(type) {
	case []any:
		for _, l := range labels {
			if s, ok := l.(string); ok {
				set[s] = struct{}{}
			}
		}
	case []string:
		for _, s := range labels {
			set[s] = struct{}{}
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(set))
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchesAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
