package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/repochat/repochat/internal/github"
	"github.com/repochat/repochat/internal/telemetry"
)

// Deletion kind discriminators carried next to the confirmation token.
const (
	DeletionTypeRepo = "repo"
	DeletionTypeFile = "file"
)

const affirmative = "yes"

// A token is a per-proposal nonce joined with the target identifier. The
// nonce makes every proposal distinct in the replay guard: cancelling one
// proposal, or deleting and later recreating a target, must never block a
// fresh proposal for the same name.
const tokenSep = "|"

func repoToken(repo string) string {
	return uuid.NewString() + tokenSep + repo
}

func fileToken(repo, path string) string {
	return uuid.NewString() + tokenSep + repo + tokenSep + path
}

func parseRepoToken(token string) (repo string, ok bool) {
	parts := strings.SplitN(token, tokenSep, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func parseFileToken(token string) (repo, path string, ok bool) {
	parts := strings.SplitN(token, tokenSep, 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// consumedTokens remembers recently consumed confirmation tokens so a
// replayed token cannot trigger a second deletion. Bounded; this is replay
// protection, not a session store.
type consumedTokens struct {
	mu    sync.Mutex
	seen  map[string]bool
	order []string
}

const maxConsumedTokens = 1024

func newConsumedTokens() *consumedTokens {
	return &consumedTokens{seen: make(map[string]bool)}
}

// consume marks a token used and reports whether it had been used before.
func (c *consumedTokens) consume(token string) (replayed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen[token] {
		return true
	}
	c.seen[token] = true
	c.order = append(c.order, token)
	if len(c.order) > maxConsumedTokens {
		delete(c.seen, c.order[0])
		c.order = c.order[1:]
	}
	return false
}

// proposeDeletion handles the Idle -> Proposed transition: it verifies the
// target exists, then returns the warning plus the serialized token. No
// server-side state is created; the caller must echo the token back on the
// next turn.
func (e *Engine) proposeDeletion(ctx context.Context, inv Invocation) (*TurnResponse, error) {
	switch inv.Name {
	case "delete_repo":
		var a repoArgs
		if err := decodeArgs(inv.Args, &a); err != nil {
			return nil, err
		}
		if _, err := e.gw.GetRepo(ctx, a.Repo); err != nil {
			if github.IsNotFound(err) {
				telemetry.IncConfirmation("not_found")
				return &TurnResponse{Response: fmt.Sprintf("I couldn't find a repository named %q.", a.Repo)}, nil
			}
			return e.failedProposal(ctx, inv, err), nil
		}
		telemetry.IncConfirmation("proposed")
		return &TurnResponse{
			Response:        fmt.Sprintf("⚠️ This will permanently delete the repository %q and everything in it. Reply \"yes\" to confirm, anything else to cancel.", a.Repo),
			PendingDeletion: repoToken(a.Repo),
			DeletionType:    DeletionTypeRepo,
		}, nil

	case "delete_file":
		var a pathArgs
		if err := decodeArgs(inv.Args, &a); err != nil {
			return nil, err
		}
		if _, err := e.gw.GetFile(ctx, a.Repo, a.Path); err != nil {
			if github.IsNotFound(err) {
				telemetry.IncConfirmation("not_found")
				return &TurnResponse{Response: fmt.Sprintf("I couldn't find the file %q in %q.", a.Path, a.Repo)}, nil
			}
			return e.failedProposal(ctx, inv, err), nil
		}
		telemetry.IncConfirmation("proposed")
		return &TurnResponse{
			Response:        fmt.Sprintf("⚠️ This will delete the file %q from %q. Reply \"yes\" to confirm, anything else to cancel.", a.Path, a.Repo),
			PendingDeletion: fileToken(a.Repo, a.Path),
			DeletionType:    DeletionTypeFile,
		}, nil

	default:
		return nil, fmt.Errorf("tool %q is not a deletion", inv.Name)
	}
}

// failedProposal renders a gateway failure during the existence check the
// same way an executed operation's failure would render: as an error line
// in a normal envelope, never as a transport error.
func (e *Engine) failedProposal(ctx context.Context, inv Invocation, err error) *TurnResponse {
	rec := ExecutionRecord{Invocation: inv, Result: OpResult{OK: false, Error: err.Error()}}
	return &TurnResponse{
		Response:  e.formatRecords(ctx, []ExecutionRecord{rec}),
		ToolCalls: []ExecutionRecord{rec},
	}
}

// resolveConfirmation handles the Proposed -> {Confirmed, Cancelled}
// transition on the turn after a proposal. Only the exact case-insensitive
// "yes" confirms; the token is discarded either way.
func (e *Engine) resolveConfirmation(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	token := req.PendingDeletion

	if e.consumed.consume(token) {
		telemetry.IncConfirmation("replayed")
		return &TurnResponse{Response: "That deletion has already been handled."}, nil
	}

	if !strings.EqualFold(strings.TrimSpace(req.Message), affirmative) {
		telemetry.IncConfirmation("cancelled")
		return &TurnResponse{Response: "Okay, I won't delete anything."}, nil
	}

	// Confirmed: the operation is already fully specified by the token, so
	// the resolver is bypassed and the gateway is called directly.
	var inv Invocation
	switch req.DeletionType {
	case DeletionTypeFile:
		repo, path, ok := parseFileToken(token)
		if !ok {
			return &TurnResponse{Response: "The pending deletion looks malformed, so nothing was deleted."}, nil
		}
		inv = Invocation{Name: "delete_file", Args: map[string]any{"repo": repo, "path": path}}
	default:
		repo, ok := parseRepoToken(token)
		if !ok {
			return &TurnResponse{Response: "The pending deletion looks malformed, so nothing was deleted."}, nil
		}
		inv = Invocation{Name: "delete_repo", Args: map[string]any{"repo": repo}}
	}

	telemetry.IncConfirmation("confirmed")
	rec := ExecutionRecord{Invocation: inv, Result: e.execute(ctx, inv)}
	return &TurnResponse{
		Response:  e.formatRecords(ctx, []ExecutionRecord{rec}),
		ToolCalls: []ExecutionRecord{rec},
	}, nil
}
