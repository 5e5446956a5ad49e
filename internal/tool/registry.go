// Package tool defines the static catalog of operations the chat engine can
// resolve a user message into. Descriptors are pure data: the engine validates
// arguments against them and the AI bridge exports them as function
// declarations.
package tool

// Param describes a single named argument of a tool.
type Param struct {
	Name        string
	Type        string // "string", "boolean" or "integer" (JSON Schema types)
	Required    bool
	Description string

	// Hint is an example phrasing shown in clarification messages when this
	// parameter is required but missing.
	Hint string
}

// Descriptor describes one executable operation.
type Descriptor struct {
	Name        string
	Description string
	Params      []Param
}

// RequiredParams returns the names of all required parameters.
func (d Descriptor) RequiredParams() []string {
	var out []string
	for _, p := range d.Params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// Param returns the parameter with the given name, if present.
func (d Descriptor) Param(name string) (Param, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

var destructive = map[string]bool{
	"delete_repo": true,
	"delete_file": true,
}

// Destructive reports whether the named tool deletes a repository or file and
// therefore requires an explicit confirmation round trip before execution.
func Destructive(name string) bool {
	return destructive[name]
}

var catalog = []Descriptor{
	{
		Name:        "list_repos",
		Description: "Lists all repositories owned by the operator.",
	},
	{
		Name:        "create_repo",
		Description: "Creates a new repository under the operator's account.",
		Params: []Param{
			{Name: "name", Type: "string", Required: true, Description: "Repository name", Hint: `create a repository called "demo"`},
			{Name: "description", Type: "string", Description: "Short repository description"},
			{Name: "private", Type: "boolean", Description: "Create as a private repository"},
		},
	},
	{
		Name:        "delete_repo",
		Description: "Permanently deletes a repository. Requires confirmation.",
		Params: []Param{
			{Name: "repo", Type: "string", Required: true, Description: "Repository to delete, owner/name or bare name", Hint: `delete the repository "demo"`},
		},
	},
	{
		Name:        "list_path",
		Description: "Lists files and directories at a path inside a repository.",
		Params: []Param{
			{Name: "repo", Type: "string", Required: true, Description: "Repository, owner/name or bare name", Hint: `list the files in "demo"`},
			{Name: "path", Type: "string", Description: "Directory path, empty for the repository root"},
		},
	},
	{
		Name:        "read_file",
		Description: "Reads the content of a file from a repository.",
		Params: []Param{
			{Name: "repo", Type: "string", Required: true, Description: "Repository, owner/name or bare name", Hint: `open README.md in "demo"`},
			{Name: "path", Type: "string", Required: true, Description: "File path inside the repository", Hint: `read the file "README.md"`},
		},
	},
	{
		Name:        "update_file",
		Description: "Creates a file or overwrites its content in a repository.",
		Params: []Param{
			{Name: "repo", Type: "string", Required: true, Description: "Repository, owner/name or bare name", Hint: `in "demo", create hello.txt`},
			{Name: "path", Type: "string", Required: true, Description: "File path inside the repository", Hint: `create a file called "hello.txt"`},
			{Name: "content", Type: "string", Required: true, Description: "Full new file content", Hint: `write "hello world" to hello.txt`},
			{Name: "message", Type: "string", Description: "Commit message"},
		},
	},
	{
		Name:        "delete_file",
		Description: "Deletes a file from a repository. Requires confirmation.",
		Params: []Param{
			{Name: "repo", Type: "string", Required: true, Description: "Repository, owner/name or bare name", Hint: `delete hello.txt from "demo"`},
			{Name: "path", Type: "string", Required: true, Description: "File path inside the repository", Hint: `delete the file "hello.txt"`},
		},
	},
	{
		Name:        "create_pull_request",
		Description: "Opens a pull request between two branches of a repository.",
		Params: []Param{
			{Name: "repo", Type: "string", Required: true, Description: "Repository, owner/name or bare name", Hint: `open a PR in "demo"`},
			{Name: "title", Type: "string", Required: true, Description: "Pull request title", Hint: `open a PR titled "Fix typo"`},
			{Name: "head", Type: "string", Required: true, Description: "Branch containing the changes", Hint: `merge feature-x into main`},
			{Name: "base", Type: "string", Required: true, Description: "Branch to merge into", Hint: `merge feature-x into main`},
			{Name: "body", Type: "string", Description: "Pull request description"},
		},
	},
	{
		Name:        "list_pull_requests",
		Description: "Lists open pull requests of a repository.",
		Params: []Param{
			{Name: "repo", Type: "string", Required: true, Description: "Repository, owner/name or bare name", Hint: `list PRs in "demo"`},
		},
	},
	{
		Name:        "merge_pull_request",
		Description: "Merges an open pull request.",
		Params: []Param{
			{Name: "repo", Type: "string", Required: true, Description: "Repository, owner/name or bare name", Hint: `merge PR 3 in "demo"`},
			{Name: "number", Type: "integer", Required: true, Description: "Pull request number", Hint: `merge pull request 3`},
		},
	},
}

// All returns every registered descriptor in a stable order.
func All() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the descriptor for a tool name.
func Lookup(name string) (Descriptor, bool) {
	for _, d := range catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}
