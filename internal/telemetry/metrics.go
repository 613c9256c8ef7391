package telemetry

import "github.com/prometheus/client_golang/prometheus"

var PlansCreatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "netguard",
		Subsystem: "plans",
		Name:      "created_total",
		Help:      "Total number of plans created, by tool family and risk level.",
	},
	[]string{"tool_family", "risk_level"},
)

var PlansDeniedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "netguard",
		Subsystem: "plans",
		Name:      "denied_total",
		Help:      "Total number of plan creation attempts denied, by reason.",
	},
	[]string{"reason"},
)

var PlansTerminalTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "netguard",
		Subsystem: "plans",
		Name:      "terminal_total",
		Help:      "Total number of plans reaching a terminal status.",
	},
	[]string{"status"},
)

var ApprovalTokensIssuedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "netguard",
		Subsystem: "approval",
		Name:      "tokens_issued_total",
		Help:      "Total number of approval tokens minted.",
	},
)

var DevicesAppliedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "netguard",
		Subsystem: "apply",
		Name:      "devices_total",
		Help:      "Total number of per-device apply outcomes, by outcome.",
	},
	[]string{"outcome"},
)

var ApplyBatchDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "netguard",
		Subsystem: "apply",
		Name:      "batch_duration_seconds",
		Help:      "Duration of one apply batch (all devices in the batch).",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	},
	[]string{"tool_family"},
)

var AuditWriteFailuresTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "netguard",
		Subsystem: "audit",
		Name:      "write_failures_total",
		Help:      "Total number of audit events that failed to persist.",
	},
)

var SlackNotificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "netguard",
		Subsystem: "slack",
		Name:      "notifications_total",
		Help:      "Total number of Slack notifications sent by type.",
	},
	[]string{"type"},
)

// All returns all netguard-specific metrics for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		PlansCreatedTotal,
		PlansDeniedTotal,
		PlansTerminalTotal,
		ApprovalTokensIssuedTotal,
		DevicesAppliedTotal,
		ApplyBatchDuration,
		AuditWriteFailuresTotal,
		SlackNotificationsTotal,
	}
}
