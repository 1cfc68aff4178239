// Package engine drives the multi-turn tool-execution loop: it repeatedly
// invokes streaming inference and, whenever the model's turn contains tool
// calls, executes them through the MCP registry, feeds the results back, and
// re-invokes inference - until the model emits a final answer or the turn
// budget runs out.
package engine

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"gemchat/config"
	"gemchat/gemini"
	"gemchat/mcp"
	"gemchat/model"
)

// MaxToolTurns bounds how many model-invocation/tool-execution cycles one
// user message may trigger before the loop force-terminates.
const MaxToolTurns = 5

// Inference is the streaming model client the engine drives. Satisfied by
// *gemini.Client; tests substitute scripted fakes.
type Inference interface {
	Stream(ctx context.Context, contents []*genai.Content, tools []*genai.Tool, onProgress gemini.ProgressFunc) (*gemini.TurnResult, error)
}

// ToolDispatcher resolves and executes tool calls. Satisfied by *mcp.Manager.
type ToolDispatcher interface {
	ConnectedServers() []*mcp.ServerConnection
	ExecuteTool(ctx context.Context, name string, args map[string]any) any
}

// Result is the outcome of one orchestrated turn. Text is the model's final
// answer - or, when the budget ran out mid-loop, the text accumulated in the
// last iteration (a degraded success the caller may flag, not an error).
// ToolCalls and ToolResults record what the loop executed along the way, for
// persisting on the finished message.
type Result struct {
	Text        string
	ToolCalls   []model.ToolCall
	ToolResults []model.ToolResult
	// BudgetExhausted is set when the model was still requesting tools after
	// the final iteration.
	BudgetExhausted bool
}

// Engine is the stateful driver for one conversation's turns. It owns its
// private turn list for the duration of a Run; callers observe progress only
// through the callback.
type Engine struct {
	inference  Inference
	dispatcher ToolDispatcher
}

func New(inference Inference, dispatcher ToolDispatcher) *Engine {
	return &Engine{inference: inference, dispatcher: dispatcher}
}

// Run executes one conversation turn end to end. The history, context
// documents, and the current connected-server snapshot are projected into
// wire turns once up front; tool iterations extend that private turn list
// without touching the caller's history.
//
// onText receives every incremental text update, plus cosmetic
// "Executing tool: <name>..." markers while tools run. Tool failures never
// abort the loop - they flow back to the model as function-response values.
// An inference failure aborts immediately and propagates.
func (e *Engine) Run(ctx context.Context, history []model.Message, contextDocs []model.Attachment, onText gemini.ProgressFunc) (*Result, error) {
	contents, tools := gemini.BuildContents(history, contextDocs, e.dispatcher.ConnectedServers())

	res := &Result{}

	for turn := 0; turn < MaxToolTurns; turn++ {
		turnResult, err := e.inference.Stream(ctx, contents, tools, onText)
		if err != nil {
			return nil, fmt.Errorf("inference failed: %w", err)
		}

		if !turnResult.HasToolCalls() {
			res.Text = turnResult.Text
			return res, nil
		}

		// Tool-call turn. Remember the text in case this was the last
		// iteration the budget allows.
		res.Text = turnResult.Text

		if config.Debug {
			config.DebugLog.Printf("[engine] turn %d: %d tool calls", turn+1, len(turnResult.ToolCalls))
		}

		// Record what the model did as one model turn - accumulated text plus
		// every pending call - so subsequent inference sees consistent history.
		modelTurn := &genai.Content{Role: genai.RoleModel}
		if turnResult.Text != "" {
			modelTurn.Parts = append(modelTurn.Parts, &genai.Part{Text: turnResult.Text})
		}
		for _, call := range turnResult.ToolCalls {
			modelTurn.Parts = append(modelTurn.Parts, &genai.Part{FunctionCall: call})
		}
		contents = append(contents, modelTurn)

		// Execute sequentially, in the order the model emitted the calls, so
		// later calls can rely on side effects of earlier ones and error
		// messages stay attributably ordered.
		display := turnResult.Text
		responseTurn := &genai.Content{Role: genai.RoleUser}
		for _, call := range turnResult.ToolCalls {
			display = appendMarker(display, call.Name)
			if onText != nil {
				onText(display)
			}

			outcome := e.dispatcher.ExecuteTool(ctx, call.Name, call.Args)

			res.ToolCalls = append(res.ToolCalls, model.ToolCall{Name: call.Name, Args: call.Args})
			res.ToolResults = append(res.ToolResults, model.ToolResult{Name: call.Name, Result: outcome})

			responseTurn.Parts = append(responseTurn.Parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name:     call.Name,
					Response: map[string]any{"result": outcome},
				},
			})
		}
		contents = append(contents, responseTurn)
	}

	// Budget exhausted while the model was still requesting tools. Return
	// whatever text the final iteration produced; the final answer may never
	// have materialized.
	if config.Debug {
		config.DebugLog.Printf("[engine] tool-turn budget (%d) exhausted", MaxToolTurns)
	}
	res.BudgetExhausted = true
	return res, nil
}

// appendMarker adds the cosmetic execution marker to the displayed text. The
// marker is never part of persisted history.
func appendMarker(display, toolName string) string {
	marker := fmt.Sprintf("Executing tool: %s...", toolName)
	if display == "" {
		return marker
	}
	return display + "\n\n" + marker
}
