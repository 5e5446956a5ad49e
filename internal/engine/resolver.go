package engine

import (
	"context"

	"github.com/repochat/repochat/internal/ai"
	"github.com/repochat/repochat/internal/tool"
)

// resolution is the terminal outcome of the cascade: either one or more
// concrete invocations, or a plain conversational reply.
type resolution struct {
	invocations []Invocation
	reply       string
	stage       string
}

// turnInput is the shared input the stages operate on. aiText carries the
// free-text output of the tool-calling stage so the syntactic stages can
// inspect it without a second model call.
type turnInput struct {
	message string
	history []ai.Turn
	ambient AmbientContext
	aiText  string
}

// stage is one extraction strategy. A nil resolution means "nothing
// actionable here, try the next stage".
type stage struct {
	name string
	run  func(ctx context.Context, in *turnInput) (*resolution, error)
}

func (e *Engine) stages() []stage {
	return []stage{
		{"tool_call", e.stageToolCall},
		{"embedded_json", e.stageEmbeddedJSON},
		{"inline_syntax", e.stageInlineSyntax},
		{"classifier", e.stageClassifier},
		{"pattern", e.stagePattern},
	}
}

// resolve runs the cascade in strict order and terminates at the first stage
// producing invocations. When every stage passes, the tool-calling stage's
// free text is the conversational reply.
func (e *Engine) resolve(ctx context.Context, in *turnInput) (*resolution, error) {
	var firstErr error
	for _, s := range e.stages() {
		res, err := s.run(ctx, in)
		if err != nil {
			// A failing AI call must not kill the turn: later stages are
			// deterministic and may still match.
			e.logger.Warn("resolution stage failed", "stage", s.name, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if res != nil {
			res.stage = s.name
			return res, nil
		}
	}

	if in.aiText != "" {
		return &resolution{reply: in.aiText, stage: "chat"}, nil
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return &resolution{reply: "I'm not sure what you'd like me to do. Could you rephrase that?", stage: "chat"}, nil
}

// stageToolCall asks the model with the full registry exported as callable
// functions. Structured calls are accepted verbatim; text is stashed for the
// following stages.
func (e *Engine) stageToolCall(ctx context.Context, in *turnInput) (*resolution, error) {
	res, err := e.bridge.GenerateWithTools(ctx, e.systemContext(in.ambient), in.history, in.message, tool.All())
	if err != nil {
		return nil, err
	}

	if res.Kind == ai.KindToolCalls {
		invocations := make([]Invocation, 0, len(res.Calls))
		for _, c := range res.Calls {
			args := c.Args
			if args == nil {
				args = map[string]any{}
			}
			invocations = append(invocations, Invocation{Name: c.Name, Args: args})
		}
		return &resolution{invocations: invocations}, nil
	}

	in.aiText = res.Text
	return nil, nil
}

// stageEmbeddedJSON handles models that describe calls as JSON text instead
// of using the native function-call channel.
func (e *Engine) stageEmbeddedJSON(_ context.Context, in *turnInput) (*resolution, error) {
	if in.aiText == "" {
		return nil, nil
	}
	invocations := parseEmbeddedCalls(in.aiText)
	if len(invocations) == 0 {
		return nil, nil
	}
	return &resolution{invocations: invocations}, nil
}

// stageInlineSyntax matches a name(key='value', ...) call written in prose.
func (e *Engine) stageInlineSyntax(_ context.Context, in *turnInput) (*resolution, error) {
	if in.aiText == "" {
		return nil, nil
	}
	inv := parseInlineCall(in.aiText)
	if inv == nil {
		return nil, nil
	}
	return &resolution{invocations: []Invocation{*inv}}, nil
}

// stagePattern is the deterministic last resort: fixed phrases matched
// against the user's own message, usable even when the AI bridge is down.
func (e *Engine) stagePattern(_ context.Context, in *turnInput) (*resolution, error) {
	inv := matchDirectPattern(in.message)
	if inv == nil {
		return nil, nil
	}
	return &resolution{invocations: []Invocation{*inv}}, nil
}
