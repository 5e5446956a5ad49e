package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const classifierPromptTemplate = `Classify the user's request into exactly one intent.

Valid intents: create_repo, delete_repo, list_repos, create_file, update_file, delete_file, none.

Respond with ONLY a JSON object, no prose, in this shape:
{"intent": "...", "repo_name": "...", "file_name": "...", "file_content": "..."}

Use null for fields that do not apply. If the user says "this repo", "the current repo" or similar, substitute the current repository given below. If the request is not one of the listed operations, use intent "none".

Current repository: %s
Currently open file: %s

User request: %s`

type classification struct {
	Intent      string `json:"intent"`
	RepoName    string `json:"repo_name"`
	FileName    string `json:"file_name"`
	FileContent string `json:"file_content"`
}

// stageClassifier issues a constrained classification prompt and maps the
// returned intent onto a registry invocation. Any parse failure degrades to
// intent none, which simply passes to the next stage.
func (e *Engine) stageClassifier(ctx context.Context, in *turnInput) (*resolution, error) {
	currentRepo := in.ambient.CurrentRepo
	if currentRepo == "" {
		currentRepo = "(none)"
	}
	currentFile := "(none)"
	if in.ambient.CurrentFile != nil {
		currentFile = fmt.Sprintf("%s in %s", in.ambient.CurrentFile.Path, in.ambient.CurrentFile.Repo)
	}

	out, err := e.bridge.Complete(ctx, fmt.Sprintf(classifierPromptTemplate, currentRepo, currentFile, in.message))
	if err != nil {
		return nil, err
	}

	var c classification
	if err := json.Unmarshal([]byte(stripFences(out)), &c); err != nil {
		return nil, nil
	}

	inv := c.toInvocation()
	if inv == nil {
		return nil, nil
	}
	return &resolution{invocations: []Invocation{*inv}}, nil
}

func (c classification) toInvocation() *Invocation {
	args := map[string]any{}
	put := func(key, val string) {
		if v := strings.TrimSpace(val); v != "" && v != "null" {
			args[key] = v
		}
	}

	switch c.Intent {
	case "list_repos":
		return &Invocation{Name: "list_repos", Args: args}
	case "create_repo":
		put("name", c.RepoName)
		return &Invocation{Name: "create_repo", Args: args}
	case "delete_repo":
		put("repo", c.RepoName)
		return &Invocation{Name: "delete_repo", Args: args}
	case "create_file", "update_file":
		put("repo", c.RepoName)
		put("path", c.FileName)
		put("content", c.FileContent)
		return &Invocation{Name: "update_file", Args: args}
	case "delete_file":
		put("repo", c.RepoName)
		put("path", c.FileName)
		return &Invocation{Name: "delete_file", Args: args}
	default:
		return nil
	}
}
