// Package metrics defines and registers all custom Prometheus metrics for the
// ad-quiz API. It is the single source of truth for metric names, labels, and
// help strings. Metrics register with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "adquiz"

// ── Ledger metrics ────────────────────────────────────────────────────────────

// CreditsMovedTotal counts credits entering or leaving user balances through
// the API.
// Label:
//   - reason: "publication" or "correct_answer"
var CreditsMovedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credits_moved_total",
		Help:      "Total credits debited or credited, by reason.",
	},
	[]string{"reason"},
)

// ResolutionsTotal counts answer and skip calls.
// Labels:
//   - outcome: "correct", "incorrect" or "skipped"
//   - result: "applied" (first resolution) or "duplicate"
var ResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resolutions_total",
		Help:      "Total number of resolution calls, by outcome and whether they took effect.",
	},
	[]string{"outcome", "result"},
)

// ── Publication metrics ───────────────────────────────────────────────────────

// PublicationsTotal counts publish attempts.
// Label:
//   - result: "charged", "exempt", "insufficient_credits", "storage_failure",
//     "conflict", "invalid" or "error"
var PublicationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publications_total",
		Help:      "Total number of publish attempts, by result.",
	},
	[]string{"result"},
)

// QuizDraftsTotal counts quiz generator calls.
// Label:
//   - result: "ok", "invalid" or "error"
var QuizDraftsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quiz_drafts_total",
		Help:      "Total number of quiz drafts requested, by result.",
	},
	[]string{"result"},
)

// ── Feed metrics ──────────────────────────────────────────────────────────────

// FeedRequestsTotal counts next-card requests.
// Label:
//   - result: "served", "empty" or "error"
var FeedRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_requests_total",
		Help:      "Total number of next-card requests, by result.",
	},
	[]string{"result"},
)

// ── Counter metrics ───────────────────────────────────────────────────────────

// CounterEventsTotal counts asynchronous counter increments.
// Labels:
//   - counter: "impression" or "click"
//   - result: "applied", "failed" or "dropped"
var CounterEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "counter_events_total",
		Help:      "Total number of counter events, by counter and result.",
	},
	[]string{"counter", "result"},
)

// CounterQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var CounterQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "counter_queue_depth",
		Help:      "Current number of counter events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Stream metrics ────────────────────────────────────────────────────────────

// BalanceStreams tracks open balance event streams.
var BalanceStreams = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "balance_streams",
		Help:      "Number of open server-sent balance streams.",
	},
)
