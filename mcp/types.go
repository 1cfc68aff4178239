package mcp

import (
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ServerStatus tracks the lifecycle of an MCP server connection.
type ServerStatus string

const (
	StatusConnected    ServerStatus = "connected"
	StatusError        ServerStatus = "error"
	StatusDisconnected ServerStatus = "disconnected"
)

// ServerConnection is one configured MCP server and its advertised tool
// catalog. A connection starts as a disconnected placeholder the moment the
// user adds it, then transitions to connected (tools populated, Name resolved
// from the URL host) or error after the asynchronous connect attempt.
//
// Optional fields carry omitempty so records persisted by older builds load
// cleanly: a missing status or tool list is treated as a disconnected server
// with no tools.
type ServerConnection struct {
	ID     string          `json:"id"`
	URL    string          `json:"url"`
	Name   string          `json:"name"`
	Status ServerStatus    `json:"status,omitempty"`
	Tools  []mcptypes.Tool `json:"tools,omitempty"`
}

// Connected reports whether the server is usable for tool dispatch.
func (s *ServerConnection) Connected() bool {
	return s.Status == StatusConnected
}

// HasTool reports whether the server advertises a tool with the given name.
func (s *ServerConnection) HasTool(name string) bool {
	for _, tool := range s.Tools {
		if tool.Name == name {
			return true
		}
	}
	return false
}
