package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChatDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zimmer_chat_duration_seconds",
			Help:    "Chat request processing duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"channel"},
	)

	ChatTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zimmer_chat_total",
			Help: "Total chat requests by answer source",
		},
		[]string{"source"},
	)

	IntentClassified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zimmer_intent_classified_total",
			Help: "Intent classifications by label and degradation tier",
		},
		[]string{"label", "degraded"},
	)

	RetrievalCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zimmer_retrieval_candidates",
			Help:    "Number of candidates surviving retrieval per request",
			Buckets: []float64{0, 1, 2, 3, 4, 8, 16},
		},
	)

	FinalScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zimmer_final_score",
			Help:    "Final fused score of the top ranked answer",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	EscalationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zimmer_escalation_total",
			Help: "Escalation gate attempts by result",
		},
		[]string{"result"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zimmer_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zimmer_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	SnapshotSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zimmer_faq_snapshot_size",
			Help: "FAQ records in the current snapshot",
		},
	)

	SnapshotRebuilds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zimmer_faq_snapshot_rebuilds_total",
			Help: "Total FAQ index rebuilds",
		},
	)
)

func Init() {
	prometheus.MustRegister(ChatDuration)
	prometheus.MustRegister(ChatTotal)
	prometheus.MustRegister(IntentClassified)
	prometheus.MustRegister(RetrievalCandidates)
	prometheus.MustRegister(FinalScore)
	prometheus.MustRegister(EscalationTotal)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(SnapshotSize)
	prometheus.MustRegister(SnapshotRebuilds)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
