package telemetry

import (
	"strings"
	"testing"
	"time"
)

func TestRenderPrometheusIncludesCounters(t *testing.T) {
	IncOperation("list_repos", "ok")
	IncOperation("delete_repo", "fail")
	IncResolutionStage("classifier")
	IncConfirmation("cancelled")
	IncGitHubAPIError("delete repo", 404)
	IncAIError("complete")
	ObserveTurnDuration(300 * time.Millisecond)

	out := RenderPrometheus()

	for _, want := range []string{
		`repochat_operations_total{tool="list_repos",status="ok"}`,
		`repochat_operations_total{tool="delete_repo",status="fail"}`,
		`repochat_resolution_stage_total{stage="classifier"}`,
		`repochat_confirmations_total{outcome="cancelled"}`,
		`repochat_github_api_errors_total{operation="delete repo",status_code="404"}`,
		`repochat_ai_errors_total{kind="complete"}`,
		`repochat_turn_duration_seconds_bucket{le="0.5"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, out)
		}
	}
}
