// Package ai wraps the Gemini SDK behind the two call shapes the engine
// needs: a tool-calling completion that may return structured function
// calls, and a plain-text completion used for intent classification and
// conversational replies.
package ai

import (
	"context"

	"google.golang.org/genai"
)

// Client is the narrow slice of the Gemini SDK the bridge depends on.
// Tests substitute a fake.
type Client interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type realClient struct {
	client *genai.Client
}

// NewClient creates a Client backed by the official SDK.
func NewClient(ctx context.Context, apiKey string) (Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, err
	}
	return &realClient{client: c}, nil
}

func (c *realClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return c.client.Models.GenerateContent(ctx, model, contents, config)
}
