package metrics

import (
	"strconv"

	"github.com/mygh/mygh/internal/observability"
)

// Metric names
const (
	ErrorsTotalName   = "errors_total"
	CommandErrorsName = "command_errors_total"
)

// RecordError records a classified API failure.
func RecordError(kind string, httpStatus int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorsTotalName,
			1,
			map[string]string{
				"kind":        kind,
				"http_status": strconv.Itoa(httpStatus),
			},
		)
	}
}

// RecordCommandError records a CLI command that exited with a failure.
func RecordCommandError(command string, exitCode int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			CommandErrorsName,
			1,
			map[string]string{
				"command":   command,
				"exit_code": strconv.Itoa(exitCode),
			},
		)
	}
}
