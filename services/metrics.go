package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	workflowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "justice",
		Name:      "workflow_transitions_total",
		Help:      "Status and stage changes applied by the workflow engine.",
	}, []string{"entity", "to"})

	workflowFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "justice",
		Name:      "workflow_failures_total",
		Help:      "Workflow operations that returned an error, by error kind.",
	}, []string{"operation", "kind"})

	auditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "justice",
		Name:      "audit_write_failures_total",
		Help:      "Audit entries that could not be persisted.",
	})

	notificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "justice",
		Name:      "notification_failures_total",
		Help:      "Notifications that could not be stored or delivered.",
	}, []string{"channel"})

	sosDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "justice",
		Name:      "sos_alerts_dispatched_total",
		Help:      "SOS alerts routed to a police station.",
	})
)

func countTransition(entity, to string) {
	workflowTransitions.WithLabelValues(entity, to).Inc()
}

func countFailure(operation string, err error) {
	if err == nil {
		return
	}
	workflowFailures.WithLabelValues(operation, string(KindOf(err))).Inc()
}
