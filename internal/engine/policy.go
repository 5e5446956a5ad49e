package engine

import (
	"fmt"
	"strings"
)

// Policy restricts which repositories and tools turns may touch, parsed from
// comma-separated env vars. An empty list means no restriction.
type Policy struct {
	allowedRepos map[string]bool
	allowedTools map[string]bool
}

// NewPolicy creates a Policy from comma-separated allowlist strings.
func NewPolicy(repoCSV, toolCSV string) *Policy {
	return &Policy{
		allowedRepos: parseCSV(repoCSV),
		allowedTools: parseCSV(toolCSV),
	}
}

// CheckRepo returns an error if a non-empty repo allowlist excludes repo.
func (p *Policy) CheckRepo(repo string) error {
	if len(p.allowedRepos) == 0 {
		return nil
	}
	if !p.allowedRepos[repo] {
		return fmt.Errorf("repo %q not in allowlist", repo)
	}
	return nil
}

// CheckTool returns an error if a non-empty tool allowlist excludes toolName.
func (p *Policy) CheckTool(toolName string) error {
	if len(p.allowedTools) == 0 {
		return nil
	}
	if !p.allowedTools[toolName] {
		return fmt.Errorf("tool %q not in allowlist", toolName)
	}
	return nil
}

// checkInvocation applies both checks to a resolved invocation.
func (p *Policy) checkInvocation(inv Invocation) error {
	if err := p.CheckTool(inv.Name); err != nil {
		return err
	}
	if repo := stringArg(inv.Args, "repo"); repo != "" {
		return p.CheckRepo(repo)
	}
	return nil
}

func parseCSV(s string) map[string]bool {
	m := make(map[string]bool)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			m[item] = true
		}
	}
	return m
}
