package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"gemchat/config"
)

// Client speaks JSON-RPC 2.0 over HTTP POST to MCP servers that expose a
// single endpoint per server. Only the two methods the chat core needs are
// implemented: tools/list and tools/call.
type Client struct {
	httpClient *http.Client
	nextID     atomic.Int64
}

// NewClient creates a bridge client. A nil httpClient falls back to a default
// with a generous timeout; per-call deadlines are otherwise left to the
// caller's context.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{httpClient: httpClient}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      int64  `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
	ID      json.RawMessage `json:"id"`
}

// post issues one JSON-RPC request and returns the decoded envelope.
// A non-2xx HTTP status is a TransportError; a JSON-RPC error object is a
// ProtocolError.
func (c *Client) post(ctx context.Context, serverURL, method string, params any) (json.RawMessage, error) {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON-RPC request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{URL: serverURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: serverURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{URL: serverURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: serverURL, Err: err}
	}

	var envelope rpcResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode JSON-RPC response from %s: %w", serverURL, err)
	}

	if envelope.Error != nil {
		return nil, &ProtocolError{Code: envelope.Error.Code, Message: envelope.Error.Message}
	}

	return envelope.Result, nil
}

// ListTools fetches the tool catalog a server advertises. A response without
// a result.tools field is decoded leniently as an empty catalog rather than
// rejected - some servers omit the field entirely when they have no tools.
func (c *Client) ListTools(ctx context.Context, serverURL string) ([]mcptypes.Tool, error) {
	result, err := c.post(ctx, serverURL, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var listResult struct {
		Tools []mcptypes.Tool `json:"tools"`
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &listResult); err != nil {
			return nil, fmt.Errorf("failed to decode tools/list result from %s: %w", serverURL, err)
		}
	}

	if listResult.Tools == nil {
		return []mcptypes.Tool{}, nil
	}
	return listResult.Tools, nil
}

// CallTool executes a named tool on a server. Unlike ListTools, failures are
// never returned as errors: transport and protocol failures are folded into a
// {"error": message} value so the outcome can flow back into the conversation
// as a turn the model can read and react to, instead of aborting the
// surrounding tool loop.
func (c *Client) CallTool(ctx context.Context, serverURL, name string, args map[string]any) any {
	params := map[string]any{
		"name":      name,
		"arguments": args,
	}

	result, err := c.post(ctx, serverURL, "tools/call", params)
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[mcp] tools/call %s on %s failed: %v", name, serverURL, err)
		}
		var transportErr *TransportError
		if errors.As(err, &transportErr) && transportErr.StatusCode != 0 {
			return map[string]any{"error": fmt.Sprintf("HTTP %d Error", transportErr.StatusCode)}
		}
		return map[string]any{"error": err.Error()}
	}

	var decoded any
	if len(result) > 0 {
		if err := json.Unmarshal(result, &decoded); err != nil {
			return map[string]any{"error": fmt.Sprintf("failed to decode tool result: %v", err)}
		}
	}
	return decoded
}
