package ai

import (
	"context"
	"fmt"

	"github.com/repochat/repochat/internal/telemetry"
	"github.com/repochat/repochat/internal/tool"
)

// Turn is one entry of the caller-owned conversation history.
type Turn struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// ToolCall is a structured function call returned by the model.
type ToolCall struct {
	Name string
	Args map[string]any
}

// Kind discriminates the two response shapes of a tool-calling completion.
type Kind int

const (
	KindText Kind = iota
	KindToolCalls
)

// Result is the tagged outcome of a tool-calling completion: either free
// text or one or more structured calls, never both.
type Result struct {
	Kind  Kind
	Text  string
	Calls []ToolCall
}

// Bridge issues completions against a fixed model.
type Bridge struct {
	client Client
	model  string
}

func NewBridge(client Client, model string) *Bridge {
	return &Bridge{client: client, model: model}
}

// GenerateWithTools sends the message plus history with the registry
// exported as callable functions. Structured calls are returned verbatim;
// plain text is returned as KindText.
func (b *Bridge) GenerateWithTools(ctx context.Context, system string, history []Turn, message string, tools []tool.Descriptor) (*Result, error) {
	config := toConfig(system)
	config.Tools = toGenaiTools(tools)

	resp, err := b.client.GenerateContent(ctx, b.model, toContents(history, message), config)
	if err != nil {
		telemetry.IncAIError("tools")
		return nil, fmt.Errorf("ai tool completion: %w", err)
	}
	return fromResponse(resp)
}

// Complete sends a single prompt and returns the model's text. Used for the
// classification prompt and for narrative formatting of execution records.
func (b *Bridge) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.GenerateContent(ctx, b.model, toContents(nil, prompt), toConfig(""))
	if err != nil {
		telemetry.IncAIError("complete")
		return "", fmt.Errorf("ai completion: %w", err)
	}
	res, err := fromResponse(resp)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
