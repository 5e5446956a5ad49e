package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/repochat/repochat/internal/ai"
	"github.com/repochat/repochat/internal/telemetry"
	"github.com/repochat/repochat/internal/tool"
)

// Engine drives a whole chat turn: resolution, argument completion,
// validation, policy, execution and formatting.
type Engine struct {
	gw       Gateway
	bridge   *ai.Bridge
	logger   *slog.Logger
	username string
	audit    Auditor
	policy   *Policy
	consumed *consumedTokens
}

// Config carries the engine's collaborators. Auditor may be nil to disable
// auditing; Logger and Policy default when nil.
type Config struct {
	Gateway  Gateway
	Bridge   *ai.Bridge
	Logger   *slog.Logger
	Username string
	Auditor  Auditor
	Policy   *Policy
}

func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := cfg.Policy
	if policy == nil {
		policy = NewPolicy("", "")
	}
	return &Engine{
		gw:       cfg.Gateway,
		bridge:   cfg.Bridge,
		logger:   logger,
		username: cfg.Username,
		audit:    cfg.Auditor,
		policy:   policy,
		consumed: newConsumedTokens(),
	}
}

// SubmitTurn processes one chat turn end to end. All domain failures are
// expressed in the response body; an error return means the turn itself
// could not be processed.
func (e *Engine) SubmitTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	start := time.Now()
	defer func() { telemetry.ObserveTurnDuration(time.Since(start)) }()

	if req.PendingDeletion != "" {
		resp, err := e.resolveConfirmation(ctx, req)
		if err != nil {
			return nil, err
		}
		e.recordTurn(ctx, req, resp)
		return resp, nil
	}

	res, err := e.resolve(ctx, &turnInput{
		message: req.Message,
		history: req.History,
		ambient: req.Context,
	})
	if err != nil {
		e.logger.Error("turn resolution failed", "err", err)
		return &TurnResponse{Response: "Sorry, I'm having trouble reaching the assistant right now. Please try again."}, nil
	}
	telemetry.IncResolutionStage(res.stage)

	if len(res.invocations) == 0 {
		resp := &TurnResponse{Response: stripFences(res.reply)}
		e.recordTurn(ctx, req, resp)
		return resp, nil
	}

	var records []ExecutionRecord
	for _, inv := range res.invocations {
		inv = e.completeArgs(inv, req.Context)

		if msg := validateInvocation(inv); msg != "" {
			resp := &TurnResponse{Response: msg, ToolCalls: records}
			e.recordTurn(ctx, req, resp)
			return resp, nil
		}
		if err := e.policy.checkInvocation(inv); err != nil {
			records = append(records, ExecutionRecord{
				Invocation: inv,
				Result:     OpResult{OK: false, Error: err.Error()},
			})
			break
		}

		if tool.Destructive(inv.Name) {
			resp, err := e.proposeDeletion(ctx, inv)
			if err != nil {
				return nil, err
			}
			// Earlier, non-destructive operations in the same turn have
			// already run; their records ride along with the proposal.
			if len(records) > 0 {
				resp.Response = e.formatRecords(ctx, records) + "\n\n" + resp.Response
				resp.ToolCalls = records
			}
			e.recordTurn(ctx, req, resp)
			return resp, nil
		}

		records = append(records, ExecutionRecord{Invocation: inv, Result: e.execute(ctx, inv)})
	}

	resp := &TurnResponse{
		Response:  e.formatRecords(ctx, records),
		ToolCalls: records,
	}
	e.recordTurn(ctx, req, resp)
	return resp, nil
}

// ForcedDeleteFile deletes a file without the conversational handshake. It
// backs the dedicated endpoint the UI calls once a deletion was already
// confirmed in chat.
func (e *Engine) ForcedDeleteFile(ctx context.Context, repo, path string) (*TurnResponse, error) {
	inv := Invocation{Name: "delete_file", Args: map[string]any{"repo": repo, "path": path}}
	rec := ExecutionRecord{Invocation: inv, Result: e.execute(ctx, inv)}
	return &TurnResponse{
		Response:  e.formatRecords(ctx, []ExecutionRecord{rec}),
		ToolCalls: []ExecutionRecord{rec},
	}, nil
}

// recordTurn writes the audit trail. Audit failures are logged, never
// surfaced to the user.
func (e *Engine) recordTurn(ctx context.Context, req TurnRequest, resp *TurnResponse) {
	if e.audit == nil {
		return
	}
	turnID := uuid.NewString()
	if err := e.audit.RecordTurn(ctx, turnID, req.Message, resp.Response); err != nil {
		e.logger.Error("audit turn insert failed", "err", err)
		return
	}
	for _, rec := range resp.ToolCalls {
		if err := e.audit.RecordOperation(ctx, turnID, rec); err != nil {
			e.logger.Error("audit operation insert failed", "err", err)
		}
	}
}
