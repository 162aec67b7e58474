// Package mcp connects to external Model Context Protocol tool providers,
// and exposes the local tools as an MCP server.
package mcp
