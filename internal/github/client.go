// Package github is a thin wrapper over the GitHub REST API covering the
// operations the chat engine can execute: repository CRUD, file content
// read/write/delete, and pull request create/list/merge. One method per
// registered tool; no retries, a failed call is reported upward immediately.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/repochat/repochat/internal/telemetry"
)

const defaultBaseURL = "https://api.github.com"

type Client struct {
	baseURL    string
	auth       authProvider
	httpClient *http.Client
}

// NewClient creates a Client authenticating with a personal access token.
func NewClient(token string) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("github token is empty")
	}
	return &Client{
		baseURL:    defaultBaseURL,
		auth:       tokenAuth(token),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// APIError carries a non-2xx response from the GitHub API.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s HTTP %d: %s", e.Operation, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a GitHub 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func (c *Client) doAPI(ctx context.Context, method, path string, body any) (*http.Response, error) {
	header, err := c.auth.authHeader(ctx)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// apiCall issues a request and decodes a 2xx JSON response into out.
// Non-2xx responses become *APIError with the status and body text.
func (c *Client) apiCall(ctx context.Context, operation, method, path string, body, out any) error {
	resp, err := c.doAPI(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("%s HTTP %d and read body failed: %w", operation, resp.StatusCode, readErr)
		}
		telemetry.IncGitHubAPIError(operation, resp.StatusCode)
		return &APIError{Operation: operation, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// Repo is the flattened, UI-friendly repository shape.
type Repo struct {
	Name      string    `json:"name"`
	FullName  string    `json:"full_name"`
	Private   bool      `json:"private"`
	HTMLURL   string    `json:"html_url"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListRepos returns the repositories of the authenticated operator,
// most recently updated first.
func (c *Client) ListRepos(ctx context.Context) ([]Repo, error) {
	var repos []Repo
	if err := c.apiCall(ctx, "list repos", http.MethodGet, "/user/repos?per_page=100&sort=updated", nil, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// CreateRepoInput contains parameters for creating a repository.
type CreateRepoInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Private     bool   `json:"private"`
	AutoInit    bool   `json:"auto_init"`
}

// CreateRepo creates a repository under the operator's account. The
// repository is auto-initialised so file operations work immediately.
func (c *Client) CreateRepo(ctx context.Context, in CreateRepoInput) (*Repo, error) {
	in.AutoInit = true
	var repo Repo
	if err := c.apiCall(ctx, "create repo", http.MethodPost, "/user/repos", in, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// GetRepo fetches a repository by full name. Used as the existence check
// before a deletion is proposed.
func (c *Client) GetRepo(ctx context.Context, fullName string) (*Repo, error) {
	var repo Repo
	if err := c.apiCall(ctx, "get repo", http.MethodGet, "/repos/"+fullName, nil, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// DeleteRepo permanently deletes a repository.
func (c *Client) DeleteRepo(ctx context.Context, fullName string) error {
	return c.apiCall(ctx, "delete repo", http.MethodDelete, "/repos/"+fullName, nil, nil)
}

// Entry is one item of a directory listing.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"` // "file" or "dir"
	Size int64  `json:"size"`
}

// ListPath lists the entries at a path inside a repository. An empty path
// lists the repository root.
func (c *Client) ListPath(ctx context.Context, fullName, path string) ([]Entry, error) {
	var entries []Entry
	if err := c.apiCall(ctx, "list path", http.MethodGet, contentsPath(fullName, path), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// File is a repository file with its decoded content and blob SHA.
type File struct {
	Path    string `json:"path"`
	SHA     string `json:"sha"`
	Content string `json:"content"`
}

type contentsResponse struct {
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// GetFile reads a file, decoding the base64 wire content.
func (c *Client) GetFile(ctx context.Context, fullName, path string) (*File, error) {
	var raw contentsResponse
	if err := c.apiCall(ctx, "get file", http.MethodGet, contentsPath(fullName, path), nil, &raw); err != nil {
		return nil, err
	}

	content := raw.Content
	if raw.Encoding == "base64" || raw.Encoding == "" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(raw.Content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("decode file content: %w", err)
		}
		content = string(decoded)
	}
	return &File{Path: raw.Path, SHA: raw.SHA, Content: content}, nil
}

// PutFileResult reports a write. PriorSHA is empty when the file was created.
type PutFileResult struct {
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	PriorSHA string `json:"prior_sha,omitempty"`
	Created  bool   `json:"created"`
}

type putFileBody struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
}

type putFileResponse struct {
	Content struct {
		Path string `json:"path"`
		SHA  string `json:"sha"`
	} `json:"content"`
}

// PutFile creates or overwrites a file. It first resolves the current blob
// SHA and sends it back with the write, so a concurrent external edit makes
// the hosting service reject the write instead of silently losing it.
func (c *Client) PutFile(ctx context.Context, fullName, path, content, message string) (*PutFileResult, error) {
	priorSHA := ""
	existing, err := c.GetFile(ctx, fullName, path)
	switch {
	case err == nil:
		priorSHA = existing.SHA
	case IsNotFound(err):
		// new file
	default:
		return nil, err
	}

	if message == "" {
		if priorSHA == "" {
			message = "Create " + path
		} else {
			message = "Update " + path
		}
	}

	body := putFileBody{
		Message: message,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		SHA:     priorSHA,
	}
	var resp putFileResponse
	if err := c.apiCall(ctx, "put file", http.MethodPut, contentsPath(fullName, path), body, &resp); err != nil {
		return nil, err
	}
	return &PutFileResult{
		Path:     resp.Content.Path,
		SHA:      resp.Content.SHA,
		PriorSHA: priorSHA,
		Created:  priorSHA == "",
	}, nil
}

type deleteFileBody struct {
	Message string `json:"message"`
	SHA     string `json:"sha"`
}

// DeleteFile deletes a file, resolving its current blob SHA first because
// the hosting service requires it.
func (c *Client) DeleteFile(ctx context.Context, fullName, path, message string) error {
	existing, err := c.GetFile(ctx, fullName, path)
	if err != nil {
		return err
	}
	if message == "" {
		message = "Delete " + path
	}
	return c.apiCall(ctx, "delete file", http.MethodDelete, contentsPath(fullName, path),
		deleteFileBody{Message: message, SHA: existing.SHA}, nil)
}

// PullRequest is the flattened change-proposal shape.
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	Merged  bool   `json:"merged"`
	Base    struct {
		Ref string `json:"ref"`
	} `json:"base"`
	Head struct {
		Ref string `json:"ref"`
	} `json:"head"`
}

// CreatePullRequestInput contains parameters for opening a pull request.
type CreatePullRequestInput struct {
	Title string `json:"title"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body,omitempty"`
}

// CreatePullRequest opens a pull request.
func (c *Client) CreatePullRequest(ctx context.Context, fullName string, in CreatePullRequestInput) (*PullRequest, error) {
	var pr PullRequest
	if err := c.apiCall(ctx, "create pull request", http.MethodPost, "/repos/"+fullName+"/pulls", in, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// ListPullRequests lists open pull requests of a repository.
func (c *Client) ListPullRequests(ctx context.Context, fullName string) ([]PullRequest, error) {
	var prs []PullRequest
	if err := c.apiCall(ctx, "list pull requests", http.MethodGet, "/repos/"+fullName+"/pulls?state=open&per_page=100", nil, &prs); err != nil {
		return nil, err
	}
	return prs, nil
}

// MergeResult reports the outcome of a merge.
type MergeResult struct {
	Merged  bool   `json:"merged"`
	Message string `json:"message"`
	SHA     string `json:"sha,omitempty"`
}

// MergePullRequest merges an open pull request by number.
func (c *Client) MergePullRequest(ctx context.Context, fullName string, number int) (*MergeResult, error) {
	var res MergeResult
	path := fmt.Sprintf("/repos/%s/pulls/%d/merge", fullName, number)
	if err := c.apiCall(ctx, "merge pull request", http.MethodPut, path, struct{}{}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func contentsPath(fullName, path string) string {
	p := "/repos/" + fullName + "/contents"
	if path != "" {
		p += "/" + escapePath(path)
	}
	return p
}

// escapePath URL-escapes each path segment while keeping the separators.
func escapePath(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// SplitRepo splits "owner/name" into its parts.
func SplitRepo(fullName string) (string, string) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 {
		return fullName, ""
	}
	return parts[0], parts[1]
}
