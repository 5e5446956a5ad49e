package engine

import (
	"fmt"
	"strings"
)

// fileScoped lists the tools whose missing "repo" argument may be filled
// from the currently selected repository.
var fileScoped = map[string]bool{
	"list_path":           true,
	"read_file":           true,
	"update_file":         true,
	"delete_file":         true,
	"create_pull_request": true,
	"list_pull_requests":  true,
	"merge_pull_request":  true,
	"delete_repo":         true,
}

// completeArgs fills missing arguments of a tentative invocation from the
// ambient UI context and qualifies bare repository names with the operator
// username. It never overwrites arguments the resolver already produced, so
// resolving the same message twice with identical context yields identical
// invocations.
func (e *Engine) completeArgs(inv Invocation, ambient AmbientContext) Invocation {
	out := Invocation{Name: inv.Name, Args: make(map[string]any, len(inv.Args))}
	for k, v := range inv.Args {
		out.Args[k] = v
	}

	if fileScoped[out.Name] && stringArg(out.Args, "repo") == "" && ambient.CurrentRepo != "" {
		out.Args["repo"] = ambient.CurrentRepo
	}

	// A delete on "this file" completes from the open editor pane.
	if out.Name == "delete_file" && ambient.CurrentFile != nil {
		if stringArg(out.Args, "path") == "" {
			out.Args["path"] = ambient.CurrentFile.Path
		}
		if stringArg(out.Args, "repo") == "" && ambient.CurrentFile.Repo != "" {
			out.Args["repo"] = ambient.CurrentFile.Repo
		}
	}

	if repo := stringArg(out.Args, "repo"); repo != "" && !strings.Contains(repo, "/") {
		out.Args["repo"] = e.username + "/" + repo
	}
	if out.Name == "create_repo" {
		// create_repo takes a bare name; strip an owner prefix if the model
		// supplied one.
		if name := stringArg(out.Args, "name"); strings.HasPrefix(name, e.username+"/") {
			out.Args["name"] = strings.TrimPrefix(name, e.username+"/")
		}
	}

	return out
}

// stringArg returns args[key] as a trimmed string, or "" when absent or not
// a string.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

const maxContextContentBytes = 4096

// systemContext builds the system-prompt text describing what the user has
// open, so the model can ground references like "this repo" or "this file".
func (e *Engine) systemContext(ambient AmbientContext) string {
	var sb strings.Builder
	sb.WriteString("You are a GitHub assistant for the user ")
	sb.WriteString(e.username)
	sb.WriteString(". You manage repositories, files and pull requests through the provided functions. ")
	sb.WriteString("Call a function when the user asks for an operation; otherwise answer conversationally.")

	if ambient.CurrentRepo != "" {
		fmt.Fprintf(&sb, "\nThe user currently has the repository %q selected.", ambient.CurrentRepo)
	}
	if f := ambient.CurrentFile; f != nil {
		fmt.Fprintf(&sb, "\nThe user currently has the file %q from repository %q open.", f.Path, f.Repo)
		if f.Content != "" {
			content := f.Content
			if len(content) > maxContextContentBytes {
				content = content[:maxContextContentBytes] + "\n[truncated]"
			}
			fmt.Fprintf(&sb, " Its content is:\n%s", content)
		}
	}
	return sb.String()
}
