package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	nbExchangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nb_client_exchanges_total",
		Help: "Total HTTP exchanges by path and outcome kind.",
	}, []string{"path", "outcome"})

	nbExchangeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nb_client_exchange_duration_seconds",
		Help:    "HTTP exchange duration in seconds, body included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	nbTokenFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nb_client_token_fetches_total",
		Help: "Total token exchanges by result.",
	}, []string{"result"})

	nbExpiryRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nb_client_expiry_retries_total",
		Help: "Total logical requests retried after an expired access token.",
	})
)

// knownPaths are the v3 endpoints reported by name in the path label.
// Every other path is reported as "other" so that arbitrary Raw paths
// cannot grow the label space.
var knownPaths = map[string]bool{
	TokenPath:           true,
	"/v3/account":       true,
	"/v3/single":        true,
	"/v3/jobs/create":   true,
	"/v3/jobs/parse":    true,
	"/v3/jobs/start":    true,
	"/v3/jobs/status":   true,
	"/v3/jobs/results":  true,
	"/v3/jobs/download": true,
	"/v3/jobs/delete":   true,
	"/v3/jobs/search":   true,
	"/v3/poe/confirm":   true,
}

func pathLabel(path string) string {
	if knownPaths[path] {
		return path
	}
	return "other"
}

func recordExchange(path string, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
	}
	label := pathLabel(path)
	nbExchangesTotal.WithLabelValues(label, outcome).Inc()
	nbExchangeDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

func recordTokenFetch(success bool) {
	if success {
		nbTokenFetchesTotal.WithLabelValues("success").Inc()
	} else {
		nbTokenFetchesTotal.WithLabelValues("failure").Inc()
	}
}

func recordExpiryRetry() {
	nbExpiryRetriesTotal.Inc()
}
