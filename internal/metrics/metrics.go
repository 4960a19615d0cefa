// Package metrics exposes prometheus counters for policy decisions,
// extraction outcomes and advisor retries.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mixer_policy_decisions_total",
		Help: "Policy decisions by game state and whether the selection key advanced",
	}, []string{"state", "selection"})

	extractionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mixer_extractions_total",
		Help: "Structured-output extractions by status",
	}, []string{"status"})

	advisorAttemptTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mixer_advisor_attempts_total",
		Help: "Model calls issued by the advisor, by extraction status",
	}, []string{"status"})

	advisorOutcomeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mixer_advisor_recommendations_total",
		Help: "Advisor recommendations by outcome (first, retried, exhausted)",
	}, []string{"outcome"})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mixer_sessions_active",
		Help: "Sessions currently held by the server",
	})

	sessionEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mixer_session_entries_total",
		Help: "Entries appended to session logs",
	})
)

// RecordDecision counts one policy decision.
func RecordDecision(state string, newSelection bool) {
	selection := "held"
	if newSelection {
		selection = "new"
	}
	decisionTotal.WithLabelValues(normalizeState(state), selection).Inc()
}

// RecordExtraction counts one extractor result.
func RecordExtraction(status string) {
	extractionTotal.WithLabelValues(normalizeStatus(status)).Inc()
}

// RecordAdvisorAttempt counts one model call made by the advisor.
func RecordAdvisorAttempt(status string) {
	advisorAttemptTotal.WithLabelValues(normalizeStatus(status)).Inc()
}

// RecordAdvisorOutcome counts one finished recommendation.
func RecordAdvisorOutcome(outcome string) {
	switch outcome {
	case "first", "retried", "exhausted":
	default:
		outcome = "unknown"
	}
	advisorOutcomeTotal.WithLabelValues(outcome).Inc()
}

// SessionOpened and SessionClosed track the live session gauge.
func SessionOpened() { sessionsActive.Inc() }

func SessionClosed() { sessionsActive.Dec() }

// RecordEntry counts one appended log entry.
func RecordEntry() { sessionEntriesTotal.Inc() }

func normalizeState(state string) string {
	switch s := strings.ToLower(strings.TrimSpace(state)); s {
	case "explore", "stealth", "combat", "bosscombat":
		return s
	default:
		return "unknown"
	}
}

func normalizeStatus(status string) string {
	switch s := strings.ToLower(strings.TrimSpace(status)); s {
	case "ok", "incomplete", "no_json", "transport_error":
		return s
	default:
		return "unknown"
	}
}
