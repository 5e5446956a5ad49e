package ai

import (
	"fmt"

	"github.com/repochat/repochat/internal/tool"
	"google.golang.org/genai"
)

// toContents converts history plus the current message to Gemini contents.
func toContents(history []Turn, message string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		if t.Text == "" {
			continue
		}
		if t.Role == "model" || t.Role == "assistant" {
			contents = append(contents, genai.NewContentFromText(t.Text, genai.RoleModel))
		} else {
			contents = append(contents, genai.NewContentFromText(t.Text, genai.RoleUser))
		}
	}
	if message != "" {
		contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))
	}
	return contents
}

func toConfig(system string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return config
}

// toGenaiTools exports registry descriptors as function declarations.
func toGenaiTools(tools []tool.Descriptor) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, d := range tools {
		fd := &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
		}
		if len(d.Params) > 0 {
			schema := &genai.Schema{
				Type:       genai.TypeObject,
				Properties: make(map[string]*genai.Schema, len(d.Params)),
			}
			for _, p := range d.Params {
				schema.Properties[p.Name] = &genai.Schema{
					Type:        toGenaiType(p.Type),
					Description: p.Description,
				}
				if p.Required {
					schema.Required = append(schema.Required, p.Name)
				}
			}
			fd.Parameters = schema
		}
		decls = append(decls, fd)
	}

	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func toGenaiType(typeStr string) genai.Type {
	switch typeStr {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

// fromResponse converts a Gemini response to the tagged Result. A candidate
// containing any function call parts becomes KindToolCalls; otherwise the
// text parts are concatenated.
func fromResponse(resp *genai.GenerateContentResponse) (*Result, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]

	var calls []ToolCall
	var text string
	for _, part := range candidate.Content.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, ToolCall{Name: part.FunctionCall.Name, Args: part.FunctionCall.Args})
		}
		if part.Text != "" {
			text += part.Text
		}
	}

	if len(calls) > 0 {
		return &Result{Kind: KindToolCalls, Calls: calls}, nil
	}
	return &Result{Kind: KindText, Text: text}, nil
}
