package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationFailures counts emails that could not be delivered, by template.
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maternity_matters",
		Name:      "notification_failures_total",
		Help:      "Outbound emails that failed to send.",
	}, []string{"template"})

	// NotificationsSent counts emails accepted by the mail provider, by template.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maternity_matters",
		Name:      "notifications_sent_total",
		Help:      "Outbound emails accepted by the mail provider.",
	}, []string{"template"})

	// ChatRequests counts chat assistant calls by outcome (ok, error).
	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maternity_matters",
		Name:      "chat_requests_total",
		Help:      "Chat assistant requests by outcome.",
	}, []string{"outcome"})

	// ComplaintsCreated counts persisted complaints.
	ComplaintsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "maternity_matters",
		Name:      "complaints_created_total",
		Help:      "Complaints persisted.",
	})
)
