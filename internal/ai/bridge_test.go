package ai

import (
	"context"
	"testing"

	"github.com/repochat/repochat/internal/tool"
	"google.golang.org/genai"
)

type fakeClient struct {
	resp *genai.GenerateContentResponse
	err  error

	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig
}

func (f *fakeClient) GenerateContent(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotContents = contents
	f.gotConfig = config
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func callResponse(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{FunctionCall: &genai.FunctionCall{Name: name, Args: args}},
			}},
		}},
	}
}

func TestGenerateWithToolsStructuredCall(t *testing.T) {
	fake := &fakeClient{resp: callResponse("create_repo", map[string]any{"name": "demo"})}
	b := NewBridge(fake, "gemini-2.0-flash")

	res, err := b.GenerateWithTools(context.Background(), "system", nil, "create a repo called demo", tool.All())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Kind != KindToolCalls {
		t.Fatalf("kind = %v, want KindToolCalls", res.Kind)
	}
	if len(res.Calls) != 1 || res.Calls[0].Name != "create_repo" || res.Calls[0].Args["name"] != "demo" {
		t.Fatalf("unexpected calls: %+v", res.Calls)
	}

	if fake.gotConfig.SystemInstruction == nil {
		t.Fatal("expected system instruction to be set")
	}
	if len(fake.gotConfig.Tools) != 1 || len(fake.gotConfig.Tools[0].FunctionDeclarations) != len(tool.All()) {
		t.Fatal("expected every registry descriptor to be declared")
	}
}

func TestGenerateWithToolsTextFallback(t *testing.T) {
	fake := &fakeClient{resp: textResponse("Hello! How can I help?")}
	b := NewBridge(fake, "gemini-2.0-flash")

	res, err := b.GenerateWithTools(context.Background(), "", nil, "hi", tool.All())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Kind != KindText || res.Text != "Hello! How can I help?" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCompleteSendsHistoryFreePrompt(t *testing.T) {
	fake := &fakeClient{resp: textResponse(`{"intent":"none"}`)}
	b := NewBridge(fake, "gemini-2.0-flash")

	out, err := b.Complete(context.Background(), "classify this")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != `{"intent":"none"}` {
		t.Fatalf("out = %q", out)
	}
	if len(fake.gotContents) != 1 {
		t.Fatalf("expected a single prompt content, got %d", len(fake.gotContents))
	}
}

func TestToGenaiToolsMapsTypesAndRequired(t *testing.T) {
	tools := toGenaiTools([]tool.Descriptor{{
		Name: "merge_pull_request",
		Params: []tool.Param{
			{Name: "repo", Type: "string", Required: true},
			{Name: "number", Type: "integer", Required: true},
			{Name: "private", Type: "boolean"},
		},
	}})

	decl := tools[0].FunctionDeclarations[0]
	if decl.Parameters.Properties["number"].Type != genai.TypeInteger {
		t.Fatal("integer param not mapped")
	}
	if decl.Parameters.Properties["private"].Type != genai.TypeBoolean {
		t.Fatal("boolean param not mapped")
	}
	if len(decl.Parameters.Required) != 2 {
		t.Fatalf("required = %v", decl.Parameters.Required)
	}
}

func TestHistoryRolesConverted(t *testing.T) {
	history := []Turn{
		{Role: "user", Text: "list my repos"},
		{Role: "model", Text: "You have 2 repositories."},
	}
	contents := toContents(history, "thanks")
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if string(contents[1].Role) != "model" {
		t.Fatalf("model turn role = %q", contents[1].Role)
	}
}
