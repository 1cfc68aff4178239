package gemini

import (
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"google.golang.org/genai"
)

// ConvertToolsToGeminiFormat converts MCP tool descriptors into Gemini
// function declarations.
//
// MCP Tool structure:
//
//	{
//	  "name": "get_weather",
//	  "description": "Get weather data",
//	  "inputSchema": {
//	    "type": "object",
//	    "properties": {...},
//	    "required": [...]
//	  }
//	}
//
// Gemini declaration structure uses FunctionDeclaration with a typed Schema.
// A tool without a description gets "Tool from <server name>" so the model
// always sees some hint of where a capability comes from.
func ConvertToolsToGeminiFormat(mcpTools []mcptypes.Tool, serverName string) []*genai.FunctionDeclaration {
	if len(mcpTools) == 0 {
		return nil
	}

	result := make([]*genai.FunctionDeclaration, 0, len(mcpTools))

	for _, tool := range mcpTools {
		description := tool.Description
		if description == "" {
			description = fmt.Sprintf("Tool from %s", serverName)
		}

		result = append(result, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: description,
			Parameters:  convertInputSchema(tool.InputSchema),
		})
	}

	return result
}

// convertInputSchema converts an MCP input schema to a Gemini Schema.
func convertInputSchema(schema mcptypes.ToolInputSchema) *genai.Schema {
	genSchema := &genai.Schema{
		Type:     schemaTypeFromString(schema.Type),
		Required: schema.Required,
	}

	if len(schema.Properties) > 0 {
		genSchema.Properties = make(map[string]*genai.Schema, len(schema.Properties))
		for name, prop := range schema.Properties {
			genSchema.Properties[name] = convertPropertyValue(prop)
		}
	}

	return genSchema
}

// convertPropertyValue converts one JSON-schema property (an untyped map in
// the MCP descriptor) to a Gemini Schema, recursing into object properties
// and array items.
func convertPropertyValue(propValue any) *genai.Schema {
	propMap, ok := propValue.(map[string]any)
	if !ok {
		return &genai.Schema{Type: genai.TypeString}
	}

	genSchema := &genai.Schema{
		Type: genai.TypeString,
	}

	if typeVal, ok := propMap["type"].(string); ok {
		genSchema.Type = schemaTypeFromString(typeVal)
	}

	if desc, ok := propMap["description"].(string); ok {
		genSchema.Description = desc
	}

	if enumVal, ok := propMap["enum"].([]any); ok {
		for _, e := range enumVal {
			if s, ok := e.(string); ok {
				genSchema.Enum = append(genSchema.Enum, s)
			}
		}
	}

	if required, ok := propMap["required"].([]any); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				genSchema.Required = append(genSchema.Required, s)
			}
		}
	}

	if props, ok := propMap["properties"].(map[string]any); ok {
		genSchema.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			genSchema.Properties[name] = convertPropertyValue(prop)
		}
	}

	if items, ok := propMap["items"]; ok {
		genSchema.Items = convertPropertyValue(items)
	}

	return genSchema
}

func schemaTypeFromString(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object", "":
		return genai.TypeObject
	}
	return genai.TypeString
}
