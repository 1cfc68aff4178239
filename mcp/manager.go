package mcp

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"gemchat/config"
)

// Manager owns the set of configured MCP server connections and routes tool
// calls to them. The server list is mutated only by explicit user actions
// (add, refresh, remove); an in-flight conversation turn reads whatever
// snapshot is current when it asks, with no serialization against concurrent
// edits - last writer wins.
type Manager struct {
	mu      sync.RWMutex
	client  *Client
	servers []*ServerConnection
}

// NewManager creates a Manager using the given bridge client. A nil client
// gets a default one.
func NewManager(client *Client) *Manager {
	if client == nil {
		client = NewClient(nil)
	}
	return &Manager{client: client}
}

// AddServer registers a server in disconnected placeholder state and returns
// it immediately. The caller decides when to run the connect attempt, so a UI
// can render the placeholder before the network round-trip lands.
func (m *Manager) AddServer(serverURL string) *ServerConnection {
	server := &ServerConnection{
		ID:     uuid.New().String(),
		URL:    serverURL,
		Name:   serverURL,
		Status: StatusDisconnected,
	}

	m.mu.Lock()
	m.servers = append(m.servers, server)
	m.mu.Unlock()

	return server
}

// Connect runs the connect attempt for a server: lists its tools and
// transitions it to connected (name resolved from the URL host, tools
// populated) or error. Refreshing an existing connection re-runs the same
// transition.
func (m *Manager) Connect(ctx context.Context, id string) error {
	server := m.findByID(id)
	if server == nil {
		return fmt.Errorf("unknown server: %s", id)
	}

	tools, err := m.client.ListTools(ctx, server.URL)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		server.Status = StatusError
		server.Tools = nil
		if config.DebugLog != nil {
			config.DebugLog.Printf("[mcp] connect to %s failed: %v", server.URL, err)
		}
		return err
	}

	server.Status = StatusConnected
	server.Tools = tools
	server.Name = resolveServerName(server.URL)
	if config.DebugLog != nil {
		config.DebugLog.Printf("[mcp] connected to %s: %d tools", server.Name, len(tools))
	}
	return nil
}

// Refresh re-runs the connect transition for a server.
func (m *Manager) Refresh(ctx context.Context, id string) error {
	return m.Connect(ctx, id)
}

// RemoveServer deletes a server from the registry outright.
func (m *Manager) RemoveServer(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	filtered := m.servers[:0]
	for _, s := range m.servers {
		if s.ID != id {
			filtered = append(filtered, s)
		}
	}
	m.servers = filtered
}

// Servers returns a snapshot of all configured servers in registration order.
func (m *Manager) Servers() []*ServerConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make([]*ServerConnection, len(m.servers))
	copy(snapshot, m.servers)
	return snapshot
}

// ConnectedServers returns only the servers currently usable for dispatch,
// preserving registration order.
func (m *Manager) ConnectedServers() []*ServerConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var connected []*ServerConnection
	for _, s := range m.servers {
		if s.Connected() {
			connected = append(connected, s)
		}
	}
	return connected
}

// FindServerForTool selects the owning server for a tool name: the first
// connected server whose catalog advertises it. Tool names are assumed
// globally unique; when two servers both advertise the same name, the one
// registered first always wins, deterministically.
func (m *Manager) FindServerForTool(name string) *ServerConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.servers {
		if s.Connected() && s.HasTool(name) {
			return s
		}
	}
	return nil
}

// ExecuteTool dispatches a tool call to its owning server. When no connected
// server advertises the tool, a {"error": ...} value is synthesized without
// touching the network; actual call failures are likewise captured as values
// by the bridge client. ExecuteTool never returns an error to the caller.
func (m *Manager) ExecuteTool(ctx context.Context, name string, args map[string]any) any {
	server := m.FindServerForTool(name)
	if server == nil {
		return map[string]any{"error": fmt.Sprintf("Tool %s not found in connected servers.", name)}
	}
	return m.client.CallTool(ctx, server.URL, name, args)
}

// Restore re-registers previously persisted server records as disconnected
// placeholders, keeping their IDs and names. Callers typically follow up with
// an optimistic Connect per server.
func (m *Manager) Restore(records []ServerConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range records {
		server := &ServerConnection{
			ID:     rec.ID,
			URL:    rec.URL,
			Name:   rec.Name,
			Status: StatusDisconnected,
		}
		if server.ID == "" {
			server.ID = uuid.New().String()
		}
		if server.Name == "" {
			server.Name = rec.URL
		}
		m.servers = append(m.servers, server)
	}
}

// Snapshot returns plain records of the current server list for persistence.
func (m *Manager) Snapshot() []ServerConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]ServerConnection, 0, len(m.servers))
	for _, s := range m.servers {
		records = append(records, *s)
	}
	return records
}

func (m *Manager) findByID(id string) *ServerConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.servers {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// resolveServerName derives a display name from a server URL, preferring the
// host part and falling back to the raw URL when parsing fails.
func resolveServerName(serverURL string) string {
	parsed, err := url.Parse(serverURL)
	if err != nil || parsed.Host == "" {
		return serverURL
	}
	return parsed.Host
}
