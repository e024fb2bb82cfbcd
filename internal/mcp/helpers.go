package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mvp-joe/neobridge/internal/protocol"
)

// errorEnvelope carries a failure with no operation-specific fields.
type errorEnvelope struct {
	Error *protocol.ErrorBody `json:"error"`
}

// marshalToolResponse marshals a response object to JSON and returns it as an MCP tool result.
func marshalToolResponse(response any) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// marshalToolError returns a failure envelope as an error result, so the
// client sees the same JSON shape the HTTP API sends alongside IsError.
func marshalToolError(envelope any) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultError(string(jsonData)), nil
}

// resultText concatenates the text content of a result.
func resultText(result *mcp.CallToolResult) string {
	var b strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}
