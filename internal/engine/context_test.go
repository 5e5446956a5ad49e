package engine

import (
	"reflect"
	"strings"
	"testing"
)

func testEngineNoAI() *Engine {
	return newTestEngine(newFakeGateway(), &scriptedAI{})
}

func TestCompleteArgsFillsRepoFromContext(t *testing.T) {
	e := testEngineNoAI()
	ambient := AmbientContext{CurrentRepo: "hubot/demo"}

	out := e.completeArgs(Invocation{Name: "list_path", Args: map[string]any{}}, ambient)
	if out.Args["repo"] != "hubot/demo" {
		t.Fatalf("args = %+v", out.Args)
	}
}

func TestCompleteArgsNeverOverwrites(t *testing.T) {
	e := testEngineNoAI()
	ambient := AmbientContext{CurrentRepo: "hubot/other"}

	out := e.completeArgs(Invocation{Name: "read_file", Args: map[string]any{"repo": "hubot/demo", "path": "a.txt"}}, ambient)
	if out.Args["repo"] != "hubot/demo" {
		t.Fatalf("resolver-provided repo was overwritten: %+v", out.Args)
	}
}

func TestCompleteArgsDeleteFileFromOpenFile(t *testing.T) {
	e := testEngineNoAI()
	ambient := AmbientContext{
		CurrentFile: &FileContext{Repo: "hubot/demo", Path: "docs/guide.md"},
	}

	out := e.completeArgs(Invocation{Name: "delete_file", Args: map[string]any{}}, ambient)
	if out.Args["repo"] != "hubot/demo" || out.Args["path"] != "docs/guide.md" {
		t.Fatalf("args = %+v", out.Args)
	}
}

func TestCompleteArgsQualifiesBareRepo(t *testing.T) {
	e := testEngineNoAI()

	out := e.completeArgs(Invocation{Name: "delete_repo", Args: map[string]any{"repo": "scratch"}}, AmbientContext{})
	if out.Args["repo"] != "hubot/scratch" {
		t.Fatalf("args = %+v", out.Args)
	}
}

func TestCompleteArgsStripsOwnerFromCreateRepoName(t *testing.T) {
	e := testEngineNoAI()

	out := e.completeArgs(Invocation{Name: "create_repo", Args: map[string]any{"name": "hubot/demo"}}, AmbientContext{})
	if out.Args["name"] != "demo" {
		t.Fatalf("args = %+v", out.Args)
	}
}

func TestCompleteArgsIdempotent(t *testing.T) {
	e := testEngineNoAI()
	ambient := AmbientContext{
		CurrentRepo: "hubot/demo",
		CurrentFile: &FileContext{Repo: "hubot/demo", Path: "a.txt"},
	}
	inv := Invocation{Name: "delete_file", Args: map[string]any{}}

	once := e.completeArgs(inv, ambient)
	twice := e.completeArgs(once, ambient)
	if !reflect.DeepEqual(once.Args, twice.Args) {
		t.Fatalf("completion is not idempotent: %+v vs %+v", once.Args, twice.Args)
	}
}

func TestSystemContextMentionsOpenFile(t *testing.T) {
	e := testEngineNoAI()

	prompt := e.systemContext(AmbientContext{
		CurrentRepo: "hubot/demo",
		CurrentFile: &FileContext{Repo: "hubot/demo", Path: "a.txt", Content: "hello"},
	})
	for _, want := range []string{"hubot/demo", "a.txt", "hello"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestSystemContextTruncatesLargeContent(t *testing.T) {
	e := testEngineNoAI()
	big := strings.Repeat("x", maxContextContentBytes+100)

	prompt := e.systemContext(AmbientContext{
		CurrentFile: &FileContext{Repo: "hubot/demo", Path: "big.txt", Content: big},
	})
	if strings.Contains(prompt, big) {
		t.Fatal("content was not truncated")
	}
	if !strings.Contains(prompt, "[truncated]") {
		t.Fatal("truncation marker missing")
	}
}

func TestValidateInvocationNamesMissingField(t *testing.T) {
	msg := validateInvocation(Invocation{Name: "update_file", Args: map[string]any{"repo": "hubot/demo"}})
	if !strings.Contains(msg, "path") {
		t.Fatalf("message = %q", msg)
	}

	if msg := validateInvocation(Invocation{Name: "list_repos", Args: map[string]any{}}); msg != "" {
		t.Fatalf("list_repos needs no args, got %q", msg)
	}

	// Whitespace-only values do not count as present.
	msg = validateInvocation(Invocation{Name: "delete_repo", Args: map[string]any{"repo": "   "}})
	if msg == "" {
		t.Fatal("blank repo must fail validation")
	}
}
