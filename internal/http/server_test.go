package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/repochat/repochat/internal/db"
	"github.com/repochat/repochat/internal/engine"
)

type fakeTurnService struct {
	resp    *engine.TurnResponse
	err     error
	gotReq  engine.TurnRequest
	deleted []string
}

func (f *fakeTurnService) SubmitTurn(_ context.Context, req engine.TurnRequest) (*engine.TurnResponse, error) {
	f.gotReq = req
	return f.resp, f.err
}

func (f *fakeTurnService) ForcedDeleteFile(_ context.Context, repo, path string) (*engine.TurnResponse, error) {
	f.deleted = append(f.deleted, repo+"|"+path)
	return f.resp, f.err
}

type fakeAudit struct {
	turns []*db.Turn
	ops   []*db.Operation
}

func (f *fakeAudit) ListTurns(context.Context, int) ([]*db.Turn, error) { return f.turns, nil }
func (f *fakeAudit) ListOperationsByTurn(context.Context, string) ([]*db.Operation, error) {
	return f.ops, nil
}

func newTestServer(turns TurnService, audit AuditStore) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer("127.0.0.1:0", turns, audit, logger)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeTurnService{}, nil), "GET", "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChatPassesRequestThrough(t *testing.T) {
	svc := &fakeTurnService{resp: &engine.TurnResponse{Response: "done"}}
	s := newTestServer(svc, nil)

	rec := doRequest(t, s, "POST", "/api/v1/chat",
		`{"message": "list my repos", "context": {"currentRepository": "hubot/demo"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if svc.gotReq.Message != "list my repos" || svc.gotReq.Context.CurrentRepo != "hubot/demo" {
		t.Fatalf("request = %+v", svc.gotReq)
	}

	var out engine.TurnResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Response != "done" {
		t.Fatalf("response = %q", out.Response)
	}
}

func TestChatEchoesPendingDeletion(t *testing.T) {
	svc := &fakeTurnService{resp: &engine.TurnResponse{
		Response:        "are you sure?",
		PendingDeletion: "hubot/demo",
		DeletionType:    "repo",
	}}
	rec := doRequest(t, newTestServer(svc, nil), "POST", "/api/v1/chat", `{"message": "delete demo"}`)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["pendingDeletion"] != "hubot/demo" || out["deletionType"] != "repo" {
		t.Fatalf("envelope = %v", out)
	}
}

func TestChatMalformedBodyIsBadRequest(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeTurnService{}, nil), "POST", "/api/v1/chat", `{"message":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChatEngineFailureIsStillOK(t *testing.T) {
	svc := &fakeTurnService{err: io.ErrUnexpectedEOF}
	rec := doRequest(t, newTestServer(svc, nil), "POST", "/api/v1/chat", `{"message": "hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 envelope", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Sorry") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestDeleteFileCommand(t *testing.T) {
	svc := &fakeTurnService{resp: &engine.TurnResponse{Response: "Deleted a.txt from hubot/demo."}}
	s := newTestServer(svc, nil)

	rec := doRequest(t, s, "POST", "/api/v1/commands/delete-file", `{"repo": "hubot/demo", "path": "a.txt"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if len(svc.deleted) != 1 || svc.deleted[0] != "hubot/demo|a.txt" {
		t.Fatalf("deleted = %v", svc.deleted)
	}

	rec = doRequest(t, s, "POST", "/api/v1/commands/delete-file", `{"repo": "hubot/demo"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing path: status = %d", rec.Code)
	}
}

func TestAuditEndpoints(t *testing.T) {
	audit := &fakeAudit{turns: []*db.Turn{{TurnID: "t1", Message: "hi", Response: "hello"}}}
	s := newTestServer(&fakeTurnService{}, audit)

	rec := doRequest(t, s, "GET", "/api/v1/audit/turns", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "t1") {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, "GET", "/api/v1/audit/turns/t1/operations", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestAuditDisabled(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeTurnService{}, nil), "GET", "/api/v1/audit/turns", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeTurnService{}, nil), "GET", "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
}
