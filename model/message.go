package model

import "time"

// Message roles. The wire protocol knows only two: everything the user sends is
// "user", everything the model sends back is "model".
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ToolCall is a function invocation the model requested during a turn.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult is the outcome of one executed tool call. Result holds whatever
// the server returned, or a {"error": message} map when the call failed.
type ToolResult struct {
	Name   string `json:"name"`
	Result any    `json:"result,omitempty"`
}

// Message represents one chat message in a conversation. Messages are
// append-only once part of a session; the single exception is the trailing
// model message, which is replaced with updated copies while its text streams in.
type Message struct {
	ID          string       `json:"id"`
	Role        string       `json:"role"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	IsError     bool         `json:"is_error,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}
