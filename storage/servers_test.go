package storage

import (
	"os"
	"path/filepath"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"gemchat/mcp"
)

func TestServerStoreRoundtrip(t *testing.T) {
	store, err := NewServerStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	records := []mcp.ServerConnection{
		{
			ID:     "s1",
			URL:    "http://localhost:9000/rpc",
			Name:   "localhost:9000",
			Status: mcp.StatusConnected,
			Tools:  []mcptypes.Tool{{Name: "echo", Description: "Echo back"}},
		},
		{ID: "s2", URL: "http://other/rpc", Name: "other", Status: mcp.StatusError},
	}

	if err := store.Save(records); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(loaded))
	}
	if loaded[0].URL != "http://localhost:9000/rpc" || loaded[0].Tools[0].Name != "echo" {
		t.Errorf("unexpected first record: %+v", loaded[0])
	}
	if loaded[1].Status != mcp.StatusError {
		t.Errorf("status did not survive roundtrip: %+v", loaded[1])
	}
}

func TestServerStoreMissingFile(t *testing.T) {
	store, err := NewServerStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	records, err := store.Load()
	if err != nil {
		t.Errorf("missing file must not be an error: %v", err)
	}
	if records != nil {
		t.Errorf("expected nil records, got %v", records)
	}
}

func TestServerStoreTolerantOfOldRecords(t *testing.T) {
	dir := t.TempDir()
	store, err := NewServerStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	// Records from an older build: URLs only.
	raw := `[{"url": "http://a/rpc"}, {"url": "http://b/rpc"}]`
	if err := os.WriteFile(filepath.Join(dir, "mcp_servers.json"), []byte(raw), 0600); err != nil {
		t.Fatal(err)
	}

	records, err := store.Load()
	if err != nil {
		t.Fatalf("expected tolerant load, got %v", err)
	}
	if len(records) != 2 || records[0].URL != "http://a/rpc" {
		t.Errorf("unexpected records: %+v", records)
	}
	if records[0].Status != "" || records[0].Tools != nil {
		t.Errorf("expected zero-value optional fields, got %+v", records[0])
	}
}
