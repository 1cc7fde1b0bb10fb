package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConversationTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alfred_conversation_turns_total",
			Help: "Conversation turns by the state they started in and their outcome",
		},
		[]string{"state", "outcome"},
	)

	PersistRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alfred_reminder_persist_total",
			Help: "Reminder persistence calls by backend and result",
		},
		[]string{"backend", "result"},
	)

	PersistDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "alfred_reminder_persist_duration_seconds",
			Help: "Reminder persistence latency in seconds",
		},
		[]string{"backend"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alfred_active_sessions",
			Help: "Number of conversation sessions held in memory",
		},
	)

	SessionEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alfred_session_evictions_total",
			Help: "Total number of sessions removed by the eviction policy",
		},
	)

	InboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alfred_inbound_messages_total",
			Help: "Chat messages received by source",
		},
		[]string{"source"},
	)

	DueDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alfred_due_reminder_deliveries_total",
			Help: "Due reminder deliveries by source and result",
		},
		[]string{"source", "result"},
	)
)
