package mcp

import "fmt"

// TransportError indicates the HTTP request to a server failed outright:
// the network was unreachable or the server answered with a non-2xx status.
type TransportError struct {
	URL        string
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d error from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError indicates a well-formed HTTP response whose JSON-RPC envelope
// carried an error object.
type ProtocolError struct {
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}
