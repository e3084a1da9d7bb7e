package obslog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the set of Prometheus collectors exported at /metrics.
type Metrics struct {
	// ToolLoopIterations counts iterations consumed per trace.
	// Labels: outcome (completed|max_iterations|error)
	ToolLoopIterations *prometheus.HistogramVec

	// ToolCallDuration measures per-tool execution latency.
	// Labels: tool_name, status (success|error)
	ToolCallDuration *prometheus.HistogramVec

	// GuardrailFailures counts guardrail check failures by check name.
	GuardrailFailures *prometheus.CounterVec

	// ShellExecDuration measures shell command execution latency.
	// Labels: decision (allow|ask_approved)
	ShellExecDuration *prometheus.HistogramVec

	// ShellDecisions counts policy evaluation outcomes.
	// Labels: decision (allow|deny|ask|ask_approved|ask_rejected)
	ShellDecisions *prometheus.CounterVec

	// AgentSessionsActive gauges currently running agent sessions.
	AgentSessionsActive prometheus.Gauge

	// AgentLoopDetections counts loop-detector warnings and circuit-breaks.
	// Labels: kind (generic_repeat|ping_pong), action (warn|break)
	AgentLoopDetections *prometheus.CounterVec

	// HITLRequests counts human-in-the-loop approval requests by outcome.
	// Labels: outcome (approved|rejected|timeout)
	HITLRequests *prometheus.CounterVec

	// CronJobRuns counts scheduled job executions by outcome.
	CronJobRuns *prometheus.CounterVec

	// TracesRecorded counts traces persisted, by status.
	TracesRecorded *prometheus.CounterVec

	// DispatchDuration measures end-to-end inbound message handling time.
	DispatchDuration prometheus.Histogram
}

// NewMetrics registers and returns the process's metric collectors. Call
// once at startup.
func NewMetrics() *Metrics {
	return &Metrics{
		ToolLoopIterations: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conduit_tool_loop_iterations",
				Help:    "Iterations consumed by the bounded tool-calling loop per trace",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"outcome"},
		),
		ToolCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conduit_tool_call_duration_seconds",
				Help:    "Duration of individual tool executions",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"tool_name", "status"},
		),
		GuardrailFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_guardrail_failures_total",
				Help: "Guardrail check failures by check name",
			},
			[]string{"check"},
		),
		ShellExecDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conduit_shell_exec_duration_seconds",
				Help:    "Duration of shell command execution",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"decision"},
		),
		ShellDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_shell_policy_decisions_total",
				Help: "Policy evaluation outcomes for shell commands",
			},
			[]string{"decision"},
		),
		AgentSessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "conduit_agent_sessions_active",
			Help: "Currently running background agent sessions",
		}),
		AgentLoopDetections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_agent_loop_detections_total",
				Help: "Loop detector warnings and circuit breaks",
			},
			[]string{"kind", "action"},
		),
		HITLRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_hitl_requests_total",
				Help: "Human-in-the-loop approval requests by outcome",
			},
			[]string{"outcome"},
		),
		CronJobRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_cron_job_runs_total",
				Help: "Scheduled job executions by outcome",
			},
			[]string{"outcome"},
		),
		TracesRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_traces_recorded_total",
				Help: "Traces persisted by terminal status",
			},
			[]string{"status"},
		),
		DispatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "conduit_dispatch_duration_seconds",
			Help:    "End-to-end inbound message handling duration",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
	}
}
