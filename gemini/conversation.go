// Package gemini projects conversations into the wire format of the Gemini
// API and consumes its streamed responses.
//
// The wire representation is a sequence of role-tagged turns (user or model),
// each made of typed parts: text, inline binary data, a function call, or a
// function response. BuildContents is the single place that mapping happens;
// Client.Stream is the single place the reverse mapping (stream increments
// back into text and tool calls) happens.
package gemini

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"

	"gemchat/config"
	"gemchat/mcp"
	"gemchat/model"
)

const (
	// contextIntroText opens the synthetic turn that injects the session's
	// context documents. The documents ride along on every request, so the
	// model treats them as standing reference material rather than a one-off
	// upload.
	contextIntroText = "I'm providing the following documents as context for our conversation. Please use them to inform your answers."

	// contextAckText is the fixed synthetic model acknowledgment that follows
	// the document turn, so the history stays strictly user/model alternating
	// in spirit.
	contextAckText = "I've received the context documents and will use them to answer your questions."
)

// BuildContents projects a message history, the session's context documents,
// and the tool catalogs of the connected servers into the request shape the
// API expects: ordered turns plus an optional tool declaration list.
//
// Two invariants hold on the output:
//   - no turn ever has zero parts (messages that contribute nothing - such as
//     the optimistic placeholder a UI appends before any text has streamed
//     in - are dropped entirely);
//   - the returned tool list is nil, not empty, when no server is connected.
//     The backend treats a present-but-empty declaration array differently
//     from an absent one.
func BuildContents(history []model.Message, contextDocs []model.Attachment, servers []*mcp.ServerConnection) ([]*genai.Content, []*genai.Tool) {
	var contents []*genai.Content

	// Context documents are injected once per request as a leading
	// user/model turn pair, not once per document.
	if len(contextDocs) > 0 {
		docTurn := &genai.Content{Role: genai.RoleUser}
		docTurn.Parts = append(docTurn.Parts, &genai.Part{Text: contextIntroText})
		for _, doc := range contextDocs {
			if part := inlineDataPart(doc); part != nil {
				docTurn.Parts = append(docTurn.Parts, part)
			}
			docTurn.Parts = append(docTurn.Parts, &genai.Part{Text: fmt.Sprintf("[File: %s]", doc.Name)})
		}
		contents = append(contents, docTurn)
		contents = append(contents, genai.NewContentFromText(contextAckText, genai.RoleModel))
	}

	for _, msg := range history {
		content := buildTurn(msg)
		if content != nil {
			contents = append(contents, content)
		}
	}

	return contents, buildToolDeclarations(servers)
}

// buildTurn maps one message to a wire turn, or nil when the message yields
// no parts.
func buildTurn(msg model.Message) *genai.Content {
	role := genai.RoleUser
	if msg.Role == model.RoleModel {
		role = genai.RoleModel
	}

	content := &genai.Content{Role: role}

	for _, att := range msg.Attachments {
		if part := inlineDataPart(att); part != nil {
			content.Parts = append(content.Parts, part)
		}
	}

	if msg.Text != "" {
		content.Parts = append(content.Parts, &genai.Part{Text: msg.Text})
	}

	for _, call := range msg.ToolCalls {
		content.Parts = append(content.Parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				Name: call.Name,
				Args: call.Args,
			},
		})
	}

	for _, res := range msg.ToolResults {
		content.Parts = append(content.Parts, &genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				Name:     res.Name,
				Response: map[string]any{"result": res.Result},
			},
		})
	}

	if len(content.Parts) == 0 {
		return nil
	}
	return content
}

// inlineDataPart builds an inline-data part from an attachment. A payload
// that fails to decode is skipped rather than sent corrupted; the attachment
// codec is the validation boundary, so this only fires on hand-built values.
func inlineDataPart(att model.Attachment) *genai.Part {
	data, err := base64.StdEncoding.DecodeString(model.StripDataURIPrefix(att.Base64Data))
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[gemini] skipping undecodable attachment %s: %v", att.Name, err)
		}
		return nil
	}
	return &genai.Part{
		InlineData: &genai.Blob{
			MIMEType: att.MimeType,
			Data:     data,
		},
	}
}

// buildToolDeclarations flattens the catalogs of all connected servers into
// one function-declaration array. Servers in any other state contribute
// nothing. Returns nil when the flattened list is empty.
func buildToolDeclarations(servers []*mcp.ServerConnection) []*genai.Tool {
	var declarations []*genai.FunctionDeclaration
	for _, server := range servers {
		if !server.Connected() {
			continue
		}
		declarations = append(declarations, ConvertToolsToGeminiFormat(server.Tools, server.Name)...)
	}

	if len(declarations) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}
