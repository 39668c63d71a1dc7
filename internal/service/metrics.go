package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	accessRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gpsr_access_requests_total",
		Help: "Access requests created, by resource type.",
	}, []string{"resource_type"})

	accessDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gpsr_access_decisions_total",
		Help: "Access request decisions, by outcome.",
	}, []string{"decision"})

	grantRepairsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpsr_grant_repairs_total",
		Help: "Grants re-created for approved requests that were missing one.",
	})

	nameCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpsr_name_cache_hits_total",
		Help: "Display name lookups served from cache.",
	})

	nameCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpsr_name_cache_misses_total",
		Help: "Display name lookups that went to the database.",
	})
)
