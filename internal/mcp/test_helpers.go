package mcp

// In-process testing: CallTool invokes a tool handler directly, bypassing the
// stdio transport, so tests get synchronous calls and direct stack traces.
//
//	server, _ := mcp.NewServer(mgr, cfg)
//	resultJSON, err := server.CallTool("get_translation", map[string]interface{}{
//	    "key": "common.ok",
//	})

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CallTool is a test helper method to simulate MCP tool calls. A result with
// IsError set is returned as a Go error carrying the response text.
func (s *Server) CallTool(toolName string, params map[string]interface{}) (string, error) {
	result, err := s.CallToolResult(context.Background(), toolName, params)
	if err != nil {
		return "", err
	}
	text := resultText(result)
	if result.IsError {
		return "", fmt.Errorf("MCP error: %s", text)
	}
	return text, nil
}

// CallToolResult invokes a tool and returns the raw result
func (s *Server) CallToolResult(ctx context.Context, toolName string, params map[string]interface{}) (*mcp.CallToolResult, error) {
	handler, ok := s.handlers[toolName]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", toolName)
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      toolName,
			Arguments: paramsJSON,
		},
	}

	result, err := handler(ctx, req)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.New("handler returned no result")
	}
	return result, nil
}

func resultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	if textContent, ok := result.Content[0].(*mcp.TextContent); ok {
		return textContent.Text
	}
	return ""
}
