package tasks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "musicvid_polls_total",
		Help: "Poll cycles by outcome",
	}, []string{"outcome"})

	fetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "musicvid_fetch_errors_total",
		Help: "Failed reads of the currently playing track",
	})

	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "musicvid_resolutions_total",
		Help: "Successful resolutions by the cache tier that answered",
	}, []string{"source"})

	searchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "musicvid_search_failures_total",
		Help: "Failed video searches",
	})

	storeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "musicvid_store_errors_total",
		Help: "Persistent store failures by operation",
	}, []string{"op"})

	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "musicvid_deliveries_total",
		Help: "Links pushed to viewers by result",
	}, []string{"result"})

	activePollers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "musicvid_active_pollers",
		Help: "Pollers currently running",
	})
)
