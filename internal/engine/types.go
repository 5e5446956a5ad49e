// Package engine turns a user utterance plus ambient UI context into
// validated, executable operations: the resolution cascade, context-based
// argument completion, the confirm/cancel handshake for destructive
// operations, and the rendering of results back into user-visible text.
package engine

import (
	"context"

	"github.com/repochat/repochat/internal/ai"
	"github.com/repochat/repochat/internal/github"
)

// Invocation is a fully-specified, named operation ready for execution.
type Invocation struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// OpResult is the outcome of one executed operation: exactly one of Data or
// Error is meaningful, discriminated by OK.
type OpResult struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// ExecutionRecord pairs an invocation with its result. The ordered sequence
// of records for one turn is the machine-readable trace returned to the
// caller.
type ExecutionRecord struct {
	Invocation Invocation `json:"invocation"`
	Result     OpResult   `json:"result"`
}

// FileContext describes the file currently open in the caller's editor pane.
type FileContext struct {
	Repo    string `json:"repository"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// AmbientContext is the caller-supplied snapshot of what the user currently
// has open. It is used only to fill missing arguments and is never persisted.
type AmbientContext struct {
	CurrentRepo string       `json:"currentRepository,omitempty"`
	CurrentFile *FileContext `json:"currentFile,omitempty"`
}

// TurnRequest is one inbound chat turn. PendingDeletion carries the
// confirmation token issued on the previous turn, if any; the server holds
// no state between the two round trips.
type TurnRequest struct {
	Message         string         `json:"message"`
	History         []ai.Turn      `json:"history,omitempty"`
	Context         AmbientContext `json:"context"`
	PendingDeletion string         `json:"pendingDeletion,omitempty"`
	DeletionType    string         `json:"deletionType,omitempty"`
}

// TurnResponse is the outcome of one chat turn.
type TurnResponse struct {
	Response        string            `json:"response"`
	ToolCalls       []ExecutionRecord `json:"toolCalls,omitempty"`
	PendingDeletion string            `json:"pendingDeletion,omitempty"`
	DeletionType    string            `json:"deletionType,omitempty"`
}

// Gateway is the slice of the remote hosting service the engine executes
// operations against.
type Gateway interface {
	ListRepos(ctx context.Context) ([]github.Repo, error)
	CreateRepo(ctx context.Context, in github.CreateRepoInput) (*github.Repo, error)
	GetRepo(ctx context.Context, fullName string) (*github.Repo, error)
	DeleteRepo(ctx context.Context, fullName string) error
	ListPath(ctx context.Context, fullName, path string) ([]github.Entry, error)
	GetFile(ctx context.Context, fullName, path string) (*github.File, error)
	PutFile(ctx context.Context, fullName, path, content, message string) (*github.PutFileResult, error)
	DeleteFile(ctx context.Context, fullName, path, message string) error
	CreatePullRequest(ctx context.Context, fullName string, in github.CreatePullRequestInput) (*github.PullRequest, error)
	ListPullRequests(ctx context.Context, fullName string) ([]github.PullRequest, error)
	MergePullRequest(ctx context.Context, fullName string, number int) (*github.MergeResult, error)
}

// Auditor records turns and executed operations. A nil Auditor disables
// auditing.
type Auditor interface {
	RecordTurn(ctx context.Context, turnID, message, response string) error
	RecordOperation(ctx context.Context, turnID string, rec ExecutionRecord) error
}
