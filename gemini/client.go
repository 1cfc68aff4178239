package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"gemchat/config"
)

// systemInstruction is sent with every inference call.
const systemInstruction = "You are a helpful assistant. When tools are available, use them to answer questions you cannot answer from the conversation alone. Answer concisely."

// maxOutputTokens caps the length of a single model turn.
const maxOutputTokens = 8192

// ProgressFunc receives the full accumulated text of the current turn each
// time it grows. It is invoked synchronously from the stream consumer; callers
// that render should coalesce at their own pace rather than block.
type ProgressFunc func(text string)

// TurnResult is the reconstructed outcome of one model turn: the visible text
// and any structured tool calls, in the order the model first emitted them.
type TurnResult struct {
	Text      string
	ToolCalls []*genai.FunctionCall
}

// HasToolCalls classifies the turn: true means the model wants tools executed
// before it produces a final answer.
func (r *TurnResult) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// Client issues streaming inference calls against the Gemini API.
type Client struct {
	apiKey string
	model  string
}

// NewClient creates an inference client. The API key is required.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Client{apiKey: apiKey, model: model}, nil
}

func (c *Client) GetModel() string {
	return c.model
}

func (c *Client) SetModel(model string) {
	c.model = model
}

func (c *Client) newClient(ctx context.Context) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{APIKey: c.apiKey})
}

// Stream opens one inference call and consumes the response incrementally,
// returning the reconstructed turn. onProgress fires with the accumulated
// text whenever an increment added visible text.
//
// Any transport or protocol failure while streaming is returned as an error;
// nothing is retried here. Tool-call fragments are never surfaced to
// onProgress - they only appear in the returned TurnResult.
func (c *Client) Stream(ctx context.Context, contents []*genai.Content, tools []*genai.Tool, onProgress ProgressFunc) (*TurnResult, error) {
	client, err := c.newClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		MaxOutputTokens:   maxOutputTokens,
		Tools:             tools,
	}

	acc := newTurnAccumulator()
	for resp, err := range client.Models.GenerateContentStream(ctx, c.model, contents, genConfig) {
		if err != nil {
			return nil, fmt.Errorf("gemini streaming error: %w", err)
		}
		if acc.absorb(resp) && onProgress != nil {
			onProgress(acc.text.String())
		}
	}

	result := acc.result()
	if config.DebugLog != nil {
		config.DebugLog.Printf("[gemini] turn complete: %d chars, %d tool calls", len(result.Text), len(result.ToolCalls))
	}
	return result, nil
}

// turnAccumulator rebuilds a turn from stream increments. Visible text is
// accumulated by concatenation and never reset mid-stream. Function-call
// fragments are keyed by tool name with last-write-wins semantics: a later
// fragment for the same name replaces the earlier one in full. No merging of
// partial argument fragments is attempted - the final occurrence of a call
// name is assumed to carry the complete arguments.
type turnAccumulator struct {
	text  strings.Builder
	calls map[string]*genai.FunctionCall
	order []string
}

func newTurnAccumulator() *turnAccumulator {
	return &turnAccumulator{calls: make(map[string]*genai.FunctionCall)}
}

// absorb folds one response increment into the accumulator and reports
// whether visible text grew.
func (a *turnAccumulator) absorb(resp *genai.GenerateContentResponse) bool {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return false
	}

	grew := false
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		// Thought parts are model-internal; only plain text is visible.
		if part.Text != "" && !part.Thought {
			a.text.WriteString(part.Text)
			grew = true
		}
		if part.FunctionCall != nil {
			name := part.FunctionCall.Name
			if _, seen := a.calls[name]; !seen {
				a.order = append(a.order, name)
			}
			a.calls[name] = part.FunctionCall
		}
	}
	return grew
}

// result snapshots the accumulated turn, tool calls in first-emission order.
func (a *turnAccumulator) result() *TurnResult {
	res := &TurnResult{Text: a.text.String()}
	for _, name := range a.order {
		res.ToolCalls = append(res.ToolCalls, a.calls[name])
	}
	return res
}
