package mcp

// Implementation Plan:
// 1. ToolMetrics - per-tool call statistics behind an RWMutex
// 2. RecordCall - updates counters for one tool invocation
// 3. GetMetrics - immutable snapshot, reported by neo4j_info as stats
// 4. instrument - wraps a tool handler so every call is recorded

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolMetrics tracks tool invocations. All methods are safe for concurrent
// use.
type ToolMetrics struct {
	mu      sync.RWMutex
	started time.Time
	tools   map[string]ToolStats
}

// ToolStats summarizes calls to a single tool.
type ToolStats struct {
	Calls        int64     `json:"calls"`
	Failures     int64     `json:"failures"`
	LastCall     time.Time `json:"last_call"`
	LastDuration int64     `json:"last_duration_ms"`
	LastError    string    `json:"last_error,omitempty"`
}

// MetricsSnapshot is a point-in-time copy of ToolMetrics.
type MetricsSnapshot struct {
	UptimeSeconds int64                `json:"uptime_seconds"`
	TotalCalls    int64                `json:"total_calls"`
	TotalFailures int64                `json:"total_failures"`
	Tools         map[string]ToolStats `json:"tools"`
}

// NewToolMetrics creates an empty ToolMetrics.
func NewToolMetrics() *ToolMetrics {
	return &ToolMetrics{started: time.Now(), tools: map[string]ToolStats{}}
}

// RecordCall records one invocation of tool. failure is the error message
// reported to the client, empty on success.
func (m *ToolMetrics) RecordCall(tool string, duration time.Duration, failure string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.tools[tool]
	st.Calls++
	st.LastCall = time.Now()
	st.LastDuration = duration.Milliseconds()
	if failure != "" {
		st.Failures++
		st.LastError = failure
	} else {
		st.LastError = ""
	}
	m.tools[tool] = st
}

// GetMetrics returns a snapshot that does not change as new calls are
// recorded.
func (m *ToolMetrics) GetMetrics() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
		Tools:         maps.Clone(m.tools),
	}
	for _, st := range m.tools {
		snap.TotalCalls += st.Calls
		snap.TotalFailures += st.Failures
	}
	return snap
}

// instrument wraps handler so every call is recorded under tool. A nil
// metrics disables recording.
func instrument(tool string, metrics *ToolMetrics, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	if metrics == nil {
		return handler
	}
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := handler(ctx, request)

		failure := ""
		switch {
		case err != nil:
			failure = err.Error()
		case result != nil && result.IsError:
			failure = resultText(result)
		}
		metrics.RecordCall(tool, time.Since(start), failure)
		return result, err
	}
}
