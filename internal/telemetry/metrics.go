// Package telemetry holds in-process counters rendered as Prometheus text
// on the /metrics endpoint.
package telemetry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var defaultRegistry = newRegistry()

type registry struct {
	mu                  sync.Mutex
	operations          map[string]map[string]int64
	turnDurationBuckets []int64
	resolutionStages    map[string]int64
	confirmations       map[string]int64
	githubAPIErrors     map[string]map[int]int64
	aiErrors            map[string]int64
}

func newRegistry() *registry {
	return &registry{
		operations:          make(map[string]map[string]int64),
		turnDurationBuckets: make([]int64, len(durationBuckets)+1),
		resolutionStages:    make(map[string]int64),
		confirmations:       make(map[string]int64),
		githubAPIErrors:     make(map[string]map[int]int64),
		aiErrors:            make(map[string]int64),
	}
}

var durationBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}

// IncOperation counts an executed tool operation by name and "ok"/"fail".
func IncOperation(toolName, status string) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	if _, ok := defaultRegistry.operations[toolName]; !ok {
		defaultRegistry.operations[toolName] = make(map[string]int64)
	}
	defaultRegistry.operations[toolName][status]++
}

// IncResolutionStage counts which cascade stage terminated a turn
// ("tool_call", "embedded_json", "inline_syntax", "classifier", "pattern",
// "chat").
func IncResolutionStage(stage string) {
	defaultRegistry.mu.Lock()
	defaultRegistry.resolutionStages[stage]++
	defaultRegistry.mu.Unlock()
}

// IncConfirmation counts confirmation outcomes ("proposed", "confirmed",
// "cancelled", "not_found", "replayed").
func IncConfirmation(outcome string) {
	defaultRegistry.mu.Lock()
	defaultRegistry.confirmations[outcome]++
	defaultRegistry.mu.Unlock()
}

// IncGitHubAPIError counts a non-2xx GitHub response by operation and status.
func IncGitHubAPIError(operation string, statusCode int) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	if _, ok := defaultRegistry.githubAPIErrors[operation]; !ok {
		defaultRegistry.githubAPIErrors[operation] = make(map[int]int64)
	}
	defaultRegistry.githubAPIErrors[operation][statusCode]++
}

// IncAIError counts an AI bridge failure by call kind ("tools", "complete").
func IncAIError(kind string) {
	defaultRegistry.mu.Lock()
	defaultRegistry.aiErrors[kind]++
	defaultRegistry.mu.Unlock()
}

// ObserveTurnDuration records how long a full chat turn took.
func ObserveTurnDuration(d time.Duration) {
	sec := d.Seconds()
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	idx := len(durationBuckets)
	for i, b := range durationBuckets {
		if sec <= b {
			idx = i
			break
		}
	}
	defaultRegistry.turnDurationBuckets[idx]++
}

func RenderPrometheus() string {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	var sb strings.Builder

	sb.WriteString("# TYPE repochat_operations_total counter\n")
	for _, tool := range sortedKeys(defaultRegistry.operations) {
		for _, status := range sortedKeys(defaultRegistry.operations[tool]) {
			sb.WriteString(fmt.Sprintf("repochat_operations_total{tool=\"%s\",status=\"%s\"} %d\n", tool, status, defaultRegistry.operations[tool][status]))
		}
	}

	sb.WriteString("# TYPE repochat_turn_duration_seconds_bucket counter\n")
	bucketLabels := []string{"0.1", "0.5", "1", "2", "5", "10", "30", "60", "+Inf"}
	for i, v := range defaultRegistry.turnDurationBuckets {
		sb.WriteString(fmt.Sprintf("repochat_turn_duration_seconds_bucket{le=\"%s\"} %d\n", bucketLabels[i], v))
	}

	sb.WriteString("# TYPE repochat_resolution_stage_total counter\n")
	for _, stage := range sortedKeys(defaultRegistry.resolutionStages) {
		sb.WriteString(fmt.Sprintf("repochat_resolution_stage_total{stage=\"%s\"} %d\n", stage, defaultRegistry.resolutionStages[stage]))
	}

	sb.WriteString("# TYPE repochat_confirmations_total counter\n")
	for _, outcome := range sortedKeys(defaultRegistry.confirmations) {
		sb.WriteString(fmt.Sprintf("repochat_confirmations_total{outcome=\"%s\"} %d\n", outcome, defaultRegistry.confirmations[outcome]))
	}

	sb.WriteString("# TYPE repochat_github_api_errors_total counter\n")
	for _, op := range sortedKeys(defaultRegistry.githubAPIErrors) {
		statusCodes := make([]int, 0, len(defaultRegistry.githubAPIErrors[op]))
		for sc := range defaultRegistry.githubAPIErrors[op] {
			statusCodes = append(statusCodes, sc)
		}
		sort.Ints(statusCodes)
		for _, sc := range statusCodes {
			sb.WriteString(fmt.Sprintf("repochat_github_api_errors_total{operation=\"%s\",status_code=\"%d\"} %d\n", op, sc, defaultRegistry.githubAPIErrors[op][sc]))
		}
	}

	sb.WriteString("# TYPE repochat_ai_errors_total counter\n")
	for _, kind := range sortedKeys(defaultRegistry.aiErrors) {
		sb.WriteString(fmt.Sprintf("repochat_ai_errors_total{kind=\"%s\"} %d\n", kind, defaultRegistry.aiErrors[kind]))
	}

	return sb.String()
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
