package engine

import (
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/repochat/repochat/internal/github"
)

func okRecord(name string, data any) ExecutionRecord {
	return ExecutionRecord{
		Invocation: Invocation{Name: name, Args: map[string]any{}},
		Result:     OpResult{OK: true, Data: data},
	}
}

func TestFormatListReposEmpty(t *testing.T) {
	msg, ok := formatRecord(okRecord("list_repos", []github.Repo{}))
	if !ok || !strings.Contains(msg, "don't have any repositories") {
		t.Fatalf("msg = %q ok = %v", msg, ok)
	}
}

func TestFormatListRepos(t *testing.T) {
	repos := []github.Repo{
		{FullName: "hubot/demo", Private: false},
		{FullName: "hubot/secrets", Private: true},
	}
	msg, ok := formatRecord(okRecord("list_repos", repos))
	if !ok {
		t.Fatal("no template for list_repos")
	}
	if !strings.Contains(msg, "2 repositories") {
		t.Fatalf("msg = %q", msg)
	}
	if !strings.Contains(msg, "hubot/secrets (private)") {
		t.Fatalf("msg = %q", msg)
	}
}

func TestFormatUpdateFileCreatedVsUpdated(t *testing.T) {
	msg, _ := formatRecord(okRecord("update_file", &github.PutFileResult{Path: "a.txt", Created: true}))
	if msg != "Created a.txt." {
		t.Fatalf("created msg = %q", msg)
	}
	msg, _ = formatRecord(okRecord("update_file", &github.PutFileResult{Path: "a.txt", PriorSHA: "abc"}))
	if msg != "Updated a.txt." {
		t.Fatalf("updated msg = %q", msg)
	}
}

func TestFormatReadFileFencesContent(t *testing.T) {
	msg, ok := formatRecord(okRecord("read_file", &github.File{Path: "a.txt", Content: "hello\n"}))
	if !ok || !strings.Contains(msg, "```\nhello\n```") {
		t.Fatalf("msg = %q", msg)
	}
}

func TestFormatFailureNamesOperation(t *testing.T) {
	rec := ExecutionRecord{
		Invocation: Invocation{Name: "create_pull_request"},
		Result:     OpResult{OK: false, Error: "merge conflict"},
	}
	msg, ok := formatRecord(rec)
	if !ok {
		t.Fatal("failures must always render")
	}
	if !strings.Contains(msg, "create pull request") || !strings.Contains(msg, "merge conflict") {
		t.Fatalf("msg = %q", msg)
	}
}

func TestFormatPullRequestList(t *testing.T) {
	pr := github.PullRequest{Number: 3, Title: "Add docs", State: "open"}
	pr.Head.Ref = "docs"
	pr.Base.Ref = "main"
	msg, ok := formatRecord(okRecord("list_pull_requests", []github.PullRequest{pr}))
	if !ok || !strings.Contains(msg, "#3 Add docs (docs -> main)") {
		t.Fatalf("msg = %q ok = %v", msg, ok)
	}
}

func TestFormatRecordsMultiOpUsesNarrative(t *testing.T) {
	e := newTestEngine(newFakeGateway(), &scriptedAI{resps: []*genai.GenerateContentResponse{
		textResponse("Created the repo and added the readme."),
	}})

	recs := []ExecutionRecord{
		okRecord("create_repo", &github.Repo{FullName: "hubot/demo"}),
		okRecord("update_file", &github.PutFileResult{Path: "README.md", Created: true}),
	}
	if got := e.formatRecords(t.Context(), recs); got != "Created the repo and added the readme." {
		t.Fatalf("got %q", got)
	}
}

func TestFormatRecordsNarrativeOutageFallsBack(t *testing.T) {
	e := newTestEngine(newFakeGateway(), &scriptedAI{})

	recs := []ExecutionRecord{
		okRecord("create_repo", &github.Repo{FullName: "hubot/demo", HTMLURL: "https://example.test/demo"}),
		okRecord("update_file", &github.PutFileResult{Path: "README.md", Created: true}),
	}
	got := e.formatRecords(t.Context(), recs)
	if !strings.Contains(got, "hubot/demo") || !strings.Contains(got, "README.md") {
		t.Fatalf("fallback rendering incomplete: %q", got)
	}
}
