// Package metrics provides Prometheus metrics for the reward engine.
// Observability foundation — counters, gauges, histograms for ingestion,
// scoring, accrual, claims, the referral graph, and background sweeps.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Intake ─────────────────────────────────────────────────────────────────

// EventsIngested tracks ingest() outcomes by platform and result.
var EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rewardengine",
	Name:      "events_ingested_total",
	Help:      "Total events processed by the intake pipeline.",
}, []string{"platform", "outcome"})

// IntakeQueueDepth tracks the number of active per-user intake queues.
var IntakeQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "rewardengine",
	Name:      "intake_queues_active",
	Help:      "Number of currently active per-user intake queues.",
})

// ─── Scoring ────────────────────────────────────────────────────────────────

// HumanScore tracks the abuse scorer's human_score distribution.
var HumanScore = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "rewardengine",
	Name:      "human_score",
	Help:      "Distribution of abuse scorer human_score outputs.",
	Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
})

// SuspectedBotFlags tracks how often the per-user suspected_bot flag flips.
var SuspectedBotFlags = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "rewardengine",
	Name:      "suspected_bot_flags_total",
	Help:      "Total times a user has been flagged as a suspected bot.",
})

// ─── Ledger ─────────────────────────────────────────────────────────────────

// AccrualsProcessed tracks successful accrual steps.
var AccrualsProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "rewardengine",
	Name:      "accruals_processed_total",
	Help:      "Total accrual steps applied to user aggregates.",
})

// DailyCapForfeited tracks $FIN (fixed-point, scaled) forfeited to the
// rolling daily cap.
var DailyCapForfeited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "rewardengine",
	Name:      "daily_cap_forfeited_total",
	Help:      "Total fixed-point $FIN forfeited to the rolling daily cap.",
})

// ClaimsSettled tracks claim() outcomes.
var ClaimsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rewardengine",
	Name:      "claims_settled_total",
	Help:      "Total claim settlements by status.",
}, []string{"status"})

// ClaimLatency tracks claim() round-trip latency.
var ClaimLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "rewardengine",
	Name:      "claim_latency_seconds",
	Help:      "Claim settlement latency in seconds.",
	Buckets:   prometheus.DefBuckets,
})

// ─── Network phase ──────────────────────────────────────────────────────────

// NetworkPhase tracks the current mining phase (1-4).
var NetworkPhase = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "rewardengine",
	Name:      "network_phase",
	Help:      "Current mining phase (1=Finova Pioneer .. 4=Stability).",
})

// TotalUsers tracks the Network Phase Oracle's registered user count.
var TotalUsers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "rewardengine",
	Name:      "total_users",
	Help:      "Total registered users as tracked by the Network Phase Oracle.",
})

// ─── Referral propagation ───────────────────────────────────────────────────

// PropagationCredits tracks reward propagation credits by hop (1 = direct referrer).
var PropagationCredits = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rewardengine",
	Name:      "propagation_credits_total",
	Help:      "Total reward propagation credits issued, by referral hop.",
}, []string{"hop"})

// ─── Background sweeps ──────────────────────────────────────────────────────

// SweepDuration tracks one full sweeper.Tick pass.
var SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "rewardengine",
	Name:      "sweep_duration_seconds",
	Help:      "Duration of one background sweep pass.",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
})

// SweepForcedAccruals tracks forced accruals performed by the sweeper, by
// cause (stale, effect_expiry).
var SweepForcedAccruals = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rewardengine",
	Name:      "sweep_forced_accruals_total",
	Help:      "Total forced accrual steps performed by the background sweeper.",
}, []string{"cause"})

// ─── Errors & dead letters ──────────────────────────────────────────────────

// DeadLetters tracks events/claims parked after retry exhaustion.
var DeadLetters = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rewardengine",
	Name:      "dead_letters_total",
	Help:      "Total items parked in the dead-letter store, by kind.",
}, []string{"kind"})

// RetryQueueDepth tracks the ledger's in-memory retry queue length.
var RetryQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "rewardengine",
	Name:      "retry_queue_depth",
	Help:      "Current depth of the retry priority queue.",
})
