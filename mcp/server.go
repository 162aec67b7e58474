package mcp

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/tools"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerName is reported to the clients of the local tools server
const ServerName = "felix-tools"

// NewServer returns MCP server exposing the local tools.
func NewServer(local *tools.LocalSet) (*mcpsdk.Server, error) {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: ServerName, Version: Version}, nil)
	for _, tool := range local.Tools() {
		inputSchema, err := objectSchema(tool.Parameters())
		if err != nil {
			return nil, errors.WithMessagef(err, "tool %s", tool.Name())
		}
		server.AddTool(&mcpsdk.Tool{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: inputSchema,
		}, toolHandler(tool))
	}
	return server, nil
}

func toolHandler(tool tools.ITool) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		input := "{}"
		if req.Params != nil && len(req.Params.Arguments) > 0 {
			input = string(req.Params.Arguments)
		}

		res, err := tool.Call(ctx, input)
		if err != nil {
			return &mcpsdk.CallToolResult{
				IsError: true,
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
			}, nil
		}
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: res}},
		}, nil
	}
}

// objectSchema returns the parameters schema as a generic object schema
func objectSchema(params any) (map[string]any, error) {
	m := map[string]any{}
	if params != nil {
		js, err := json.Marshal(params)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal parameters")
		}
		if err = json.Unmarshal(js, &m); err != nil {
			return nil, errors.Wrap(err, "invalid parameters schema")
		}
	}
	if m == nil {
		m = map[string]any{}
	}
	if m["type"] == nil {
		m["type"] = "object"
	}
	if m["type"] != "object" {
		return nil, errors.Newf("parameters must be an object, got %v", m["type"])
	}
	return m, nil
}
