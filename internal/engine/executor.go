package engine

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/repochat/repochat/internal/github"
	"github.com/repochat/repochat/internal/telemetry"
)

type repoArgs struct {
	Repo string `mapstructure:"repo"`
}

type createRepoArgs struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Private     bool   `mapstructure:"private"`
}

type pathArgs struct {
	Repo string `mapstructure:"repo"`
	Path string `mapstructure:"path"`
}

type writeFileArgs struct {
	Repo    string `mapstructure:"repo"`
	Path    string `mapstructure:"path"`
	Content string `mapstructure:"content"`
	Message string `mapstructure:"message"`
}

type createPullArgs struct {
	Repo  string `mapstructure:"repo"`
	Title string `mapstructure:"title"`
	Head  string `mapstructure:"head"`
	Base  string `mapstructure:"base"`
	Body  string `mapstructure:"body"`
}

type mergePullArgs struct {
	Repo   string `mapstructure:"repo"`
	Number int    `mapstructure:"number"`
}

// decodeArgs decodes an invocation's argument map into a typed struct.
// Weak typing tolerates the model sending numbers as JSON floats or
// booleans as strings.
func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// execute dispatches a validated invocation to the gateway and folds the
// outcome into an OpResult. Exactly one of Data or Error is set.
func (e *Engine) execute(ctx context.Context, inv Invocation) OpResult {
	data, err := e.dispatch(ctx, inv)
	if err != nil {
		telemetry.IncOperation(inv.Name, "fail")
		return OpResult{OK: false, Error: err.Error()}
	}
	telemetry.IncOperation(inv.Name, "ok")
	return OpResult{OK: true, Data: data}
}

func (e *Engine) dispatch(ctx context.Context, inv Invocation) (any, error) {
	switch inv.Name {
	case "list_repos":
		return e.gw.ListRepos(ctx)

	case "create_repo":
		var a createRepoArgs
		if err := decodeArgs(inv.Args, &a); err != nil {
			return nil, err
		}
		return e.gw.CreateRepo(ctx, github.CreateRepoInput{
			Name:        a.Name,
			Description: a.Description,
			Private:     a.Private,
		})

	case "delete_repo":
		var a repoArgs
		if err := decodeArgs(inv.Args, &a); err != nil {
			return nil, err
		}
		if err := e.gw.DeleteRepo(ctx, a.Repo); err != nil {
			return nil, err
		}
		return map[string]any{"deleted": a.Repo}, nil

	case "list_path":
		var a pathArgs
		if err := decodeArgs(inv.Args, &a); err != nil {
			return nil, err
		}
		return e.gw.ListPath(ctx, a.Repo, a.Path)

	case "read_file":
		var a pathArgs
		if err := decodeArgs(inv.Args, &a); err != nil {
			return nil, err
		}
		return e.gw.GetFile(ctx, a.Repo, a.Path)

	case "update_file":
		var a writeFileArgs
		if err := decodeArgs(inv.Args, &a); err != nil {
			return nil, err
		}
		return e.gw.PutFile(ctx, a.Repo, a.Path, a.Content, a.Message)

	case "delete_file":
		var a pathArgs
		if err := decodeArgs(inv.Args, &a); err != nil {
			return nil, err
		}
		if err := e.gw.DeleteFile(ctx, a.Repo, a.Path, ""); err != nil {
			return nil, err
		}
		return map[string]any{"deleted": a.Path, "repo": a.Repo}, nil

	case "create_pull_request":
		var a createPullArgs
		if err := decodeArgs(inv.Args, &a); err != nil {
			return nil, err
		}
		return e.gw.CreatePullRequest(ctx, a.Repo, github.CreatePullRequestInput{
			Title: a.Title,
			Head:  a.Head,
			Base:  a.Base,
			Body:  a.Body,
		})

	case "list_pull_requests":
		var a repoArgs
		if err := decodeArgs(inv.Args, &a); err != nil {
			return nil, err
		}
		return e.gw.ListPullRequests(ctx, a.Repo)

	case "merge_pull_request":
		var a mergePullArgs
		if err := decodeArgs(inv.Args, &a); err != nil {
			return nil, err
		}
		return e.gw.MergePullRequest(ctx, a.Repo, a.Number)

	default:
		return nil, fmt.Errorf("unknown tool %q", inv.Name)
	}
}
