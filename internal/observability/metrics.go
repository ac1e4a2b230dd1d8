package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// SwapTransitions counts swap-request lifecycle transitions by action and outcome.
	SwapTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_swap_transitions_total",
		Help: "Total swap request transitions by action and outcome",
	}, []string{"action", "outcome"})

	// SearchQueries counts directory search queries by kind.
	SearchQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_search_queries_total",
		Help: "Total search queries by kind",
	}, []string{"kind"})

	// SignupsTotal counts successful account creations.
	SignupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skillswap_signups_total",
		Help: "Total number of successful signups",
	})
)
