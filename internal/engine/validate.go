package engine

import (
	"fmt"
	"strings"

	"github.com/repochat/repochat/internal/tool"
)

// validateInvocation enforces the descriptor's required list after context
// injection. It returns a clarification message naming the first missing
// field, or "" when the invocation is executable.
func validateInvocation(inv Invocation) string {
	desc, ok := tool.Lookup(inv.Name)
	if !ok {
		return fmt.Sprintf("I don't know how to perform %q.", inv.Name)
	}

	for _, name := range desc.RequiredParams() {
		if argPresent(inv.Args, name) {
			continue
		}
		p, _ := desc.Param(name)
		msg := fmt.Sprintf("I need the %s to do that.", name)
		if p.Hint != "" {
			msg += fmt.Sprintf(" For example: %s.", p.Hint)
		}
		return msg
	}
	return ""
}

func argPresent(args map[string]any, name string) bool {
	v, ok := args[name]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}
