// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is private to jukebox so tests can build servers repeatedly
// without tripping duplicate registration on the default registry.
var Registry = prometheus.NewRegistry()

var (
	// StoreOps counts record store operations by collection, operation and result
	StoreOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jukebox",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Record store operations by collection, operation and result.",
	}, []string{"collection", "op", "result"})

	// MalformedRows counts rows that failed to parse during a scan
	MalformedRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jukebox",
		Subsystem: "store",
		Name:      "malformed_rows_total",
		Help:      "Rows that failed to parse while scanning a collection.",
	}, []string{"collection"})

	// BlobResponses counts /data responses by status code
	BlobResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jukebox",
		Subsystem: "blob",
		Name:      "responses_total",
		Help:      "Blob responses by HTTP status code.",
	}, []string{"code"})

	// BlobBytes counts body bytes streamed from /data
	BlobBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jukebox",
		Subsystem: "blob",
		Name:      "bytes_streamed_total",
		Help:      "Body bytes written by the blob server.",
	})

	// MusicBrainzRequests counts MusicBrainz API calls by result
	MusicBrainzRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jukebox",
		Subsystem: "musicbrainz",
		Name:      "requests_total",
		Help:      "MusicBrainz API requests by result (ok, error, cache_hit).",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		StoreOps,
		MalformedRows,
		BlobResponses,
		BlobBytes,
		MusicBrainzRequests,
	)
}

// Handler serves the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Result maps an error to the "result" label value
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
