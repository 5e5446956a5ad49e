package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/repochat/repochat/internal/github"
)

const narrativePromptTemplate = `You are a concise assistant for a file hosting service.
The following operations were just executed on the user's behalf. Summarize the
outcome for the user in one or two friendly sentences. Do not invent results that
are not present below.

Operations (JSON):
%s`

// formatRecords renders execution results for the user. Single operations get
// a deterministic template; anything without one falls back to an AI summary,
// and to plain per-operation lines when the model is unavailable.
func (e *Engine) formatRecords(ctx context.Context, recs []ExecutionRecord) string {
	if len(recs) == 1 {
		if msg, ok := formatRecord(recs[0]); ok {
			return msg
		}
	}
	if msg := e.narrate(ctx, recs); msg != "" {
		return msg
	}
	lines := make([]string, 0, len(recs))
	for _, r := range recs {
		if msg, ok := formatRecord(r); ok {
			lines = append(lines, msg)
		} else {
			lines = append(lines, fmt.Sprintf("Ran %s.", r.Invocation.Name))
		}
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) narrate(ctx context.Context, recs []ExecutionRecord) string {
	raw, err := json.Marshal(recs)
	if err != nil {
		return ""
	}
	text, err := e.bridge.Complete(ctx, fmt.Sprintf(narrativePromptTemplate, raw))
	if err != nil {
		e.logger.Warn("narrative formatting failed", "error", err)
		return ""
	}
	return strings.TrimSpace(stripFences(text))
}

// formatRecord returns the deterministic rendering for a single operation, or
// ok=false when the tool has no template.
func formatRecord(rec ExecutionRecord) (string, bool) {
	if !rec.Result.OK {
		return fmt.Sprintf("Sorry, %s failed: %s", describeOp(rec.Invocation.Name), rec.Result.Error), true
	}

	switch rec.Invocation.Name {
	case "list_repos":
		repos, ok := rec.Result.Data.([]github.Repo)
		if !ok {
			return "", false
		}
		if len(repos) == 0 {
			return "You don't have any repositories yet.", true
		}
		var b strings.Builder
		fmt.Fprintf(&b, "You have %d repositories:\n", len(repos))
		for _, r := range repos {
			visibility := "public"
			if r.Private {
				visibility = "private"
			}
			fmt.Fprintf(&b, "- %s (%s)\n", r.FullName, visibility)
		}
		return strings.TrimRight(b.String(), "\n"), true

	case "create_repo":
		repo, ok := rec.Result.Data.(*github.Repo)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("Created repository %q. It's available at %s.", repo.FullName, repo.HTMLURL), true

	case "delete_repo":
		data, _ := rec.Result.Data.(map[string]any)
		return fmt.Sprintf("Deleted repository %v.", data["deleted"]), true

	case "list_path":
		entries, ok := rec.Result.Data.([]github.Entry)
		if !ok {
			return "", false
		}
		if len(entries) == 0 {
			return "That directory is empty.", true
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Found %d entries:\n", len(entries))
		for _, en := range entries {
			marker := ""
			if en.Type == "dir" {
				marker = "/"
			}
			fmt.Fprintf(&b, "- %s%s\n", en.Path, marker)
		}
		return strings.TrimRight(b.String(), "\n"), true

	case "read_file":
		f, ok := rec.Result.Data.(*github.File)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("Here's %s:\n\n```\n%s\n```", f.Path, strings.TrimRight(f.Content, "\n")), true

	case "update_file":
		res, ok := rec.Result.Data.(*github.PutFileResult)
		if !ok {
			return "", false
		}
		if res.Created {
			return fmt.Sprintf("Created %s.", res.Path), true
		}
		return fmt.Sprintf("Updated %s.", res.Path), true

	case "delete_file":
		data, _ := rec.Result.Data.(map[string]any)
		return fmt.Sprintf("Deleted %v from %v.", data["deleted"], data["repo"]), true

	case "create_pull_request":
		pr, ok := rec.Result.Data.(*github.PullRequest)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("Opened pull request #%d: %s\n%s", pr.Number, pr.Title, pr.HTMLURL), true

	case "list_pull_requests":
		prs, ok := rec.Result.Data.([]github.PullRequest)
		if !ok {
			return "", false
		}
		if len(prs) == 0 {
			return "There are no open pull requests.", true
		}
		var b strings.Builder
		fmt.Fprintf(&b, "There are %d open pull requests:\n", len(prs))
		for _, pr := range prs {
			fmt.Fprintf(&b, "- #%d %s (%s -> %s)\n", pr.Number, pr.Title, pr.Head.Ref, pr.Base.Ref)
		}
		return strings.TrimRight(b.String(), "\n"), true

	case "merge_pull_request":
		res, ok := rec.Result.Data.(*github.MergeResult)
		if !ok {
			return "", false
		}
		if !res.Merged {
			return fmt.Sprintf("The pull request could not be merged: %s", res.Message), true
		}
		return "Merged the pull request.", true
	}

	return "", false
}

func describeOp(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
