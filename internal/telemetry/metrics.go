package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studydesk_questions_total",
		Help: "Questions processed, labeled by outcome.",
	}, []string{"outcome"})

	IngestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studydesk_ingests_total",
		Help: "Material ingest operations, labeled by outcome.",
	}, []string{"outcome"})

	SessionsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studydesk_sessions_deleted_total",
		Help: "Sessions deleted locally.",
	})

	RemoteDeleteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studydesk_remote_delete_failures_total",
		Help: "Remote material deletes that failed while the local delete proceeded.",
	})
)
