package engine

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/repochat/repochat/internal/tool"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?\\s*```")

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

type embeddedCall struct {
	Function string         `json:"function"`
	Name     string         `json:"name"`
	Args     map[string]any `json:"args"`
}

type embeddedPayload struct {
	ToolCalls    []embeddedCall `json:"tool_calls"`
	ToolCallsAlt []embeddedCall `json:"toolCalls"`
}

// parseEmbeddedCalls extracts tool calls from model text that is a JSON
// object carrying a tool_calls / toolCalls array. Entries naming a tool
// outside the registry are silently skipped.
func parseEmbeddedCalls(text string) []Invocation {
	var payload embeddedPayload
	if err := json.Unmarshal([]byte(stripFences(text)), &payload); err != nil {
		return nil
	}

	calls := payload.ToolCalls
	if len(calls) == 0 {
		calls = payload.ToolCallsAlt
	}

	var out []Invocation
	for _, c := range calls {
		name := c.Function
		if name == "" {
			name = c.Name
		}
		if _, ok := tool.Lookup(name); !ok {
			continue
		}
		args := c.Args
		if args == nil {
			args = map[string]any{}
		}
		out = append(out, Invocation{Name: name, Args: args})
	}
	return out
}

var (
	inlineCallPattern = regexp.MustCompile(`([a-z_]+)\s*\(([^)]*)\)`)
	inlineArgPattern  = regexp.MustCompile(`(\w+)\s*=\s*(?:'([^']*)'|"([^"]*)")`)
)

// parseInlineCall matches a name(key='value', ...) call written in the
// model's prose. Only single- or double-quoted string values are
// recognised; bare numeric or boolean literals are not supported.
func parseInlineCall(text string) *Invocation {
	for _, m := range inlineCallPattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if _, ok := tool.Lookup(name); !ok {
			continue
		}

		args := map[string]any{}
		for _, am := range inlineArgPattern.FindAllStringSubmatch(m[2], -1) {
			val := am[2]
			if val == "" {
				val = am[3]
			}
			args[am[1]] = val
		}
		return &Invocation{Name: name, Args: args}
	}
	return nil
}

// Fixed phrases for the deterministic fallback. Quoted and unquoted target
// variants; the first capturing group is the target identifier.
var directPatterns = []struct {
	re   *regexp.Regexp
	name string
	arg  string
}{
	{regexp.MustCompile(`(?i)delete\s+the\s+repo(?:sitory)?\s+['"]([^'"]+)['"]`), "delete_repo", "repo"},
	{regexp.MustCompile(`(?i)delete\s+the\s+repo(?:sitory)?\s+([^\s'"]+)`), "delete_repo", "repo"},
	{regexp.MustCompile(`(?i)delete\s+the\s+file\s+['"]([^'"]+)['"]`), "delete_file", "path"},
	{regexp.MustCompile(`(?i)delete\s+the\s+file\s+([^\s'"]+)`), "delete_file", "path"},
}

// matchDirectPattern matches the user's own message against fixed deletion
// phrases.
func matchDirectPattern(message string) *Invocation {
	for _, p := range directPatterns {
		if m := p.re.FindStringSubmatch(message); m != nil {
			return &Invocation{Name: p.name, Args: map[string]any{p.arg: m[1]}}
		}
	}
	return nil
}
