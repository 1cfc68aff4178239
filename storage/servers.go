package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gemchat/mcp"
)

// ServerStore persists the configured MCP server connections as plain
// records. Like session storage it is best effort: a missing or corrupt file
// loads as an empty list, and records written by older builds (missing status
// or tools fields) load cleanly.
type ServerStore struct {
	path string
}

// NewServerStore creates a server store rooted in the data directory.
func NewServerStore(dataDir string) (*ServerStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &ServerStore{path: filepath.Join(dataDir, "mcp_servers.json")}, nil
}

// Save writes the current server records to disk.
func (s *ServerStore) Save(records []mcp.ServerConnection) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal server records: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write server records: %w", err)
	}

	return nil
}

// Load reads the persisted server records. A missing file is not an error.
func (s *ServerStore) Load() ([]mcp.ServerConnection, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read server records: %w", err)
	}

	var records []mcp.ServerConnection
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal server records: %w", err)
	}

	return records, nil
}
