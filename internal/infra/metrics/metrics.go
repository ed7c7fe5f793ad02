package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	MessagesDecoded = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "itch_messages_decoded_total", Help: "Wire records decoded, by type byte"}, []string{"type"})
	MessagesApplied = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "book_messages_applied_total", Help: "Messages dispatched to the book, by operation"}, []string{"op"})
	BookApplyErrors = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "book_apply_errors_total", Help: "Messages dropped by the driver, by reason"}, []string{"reason"})
	QueueDepth      = prometheus.NewGauge(prometheus.GaugeOpts{Name: "book_queue_depth", Help: "Messages waiting in the SPSC queue"})
	QueueFullTotal  = prometheus.NewCounter(prometheus.CounterOpts{Name: "book_queue_full_total", Help: "Submissions rejected on a full queue"})
	BestBidPrice    = prometheus.NewGauge(prometheus.GaugeOpts{Name: "book_best_bid_price", Help: "Highest resting bid, 0 when the side is empty"})
	BestAskPrice    = prometheus.NewGauge(prometheus.GaugeOpts{Name: "book_best_ask_price", Help: "Lowest resting ask, 0 when the side is empty"})
	RestingOrders   = prometheus.NewGauge(prometheus.GaugeOpts{Name: "book_resting_orders", Help: "Orders currently resting on the book"})

	ReplayBytesTotal   = prometheus.NewCounter(prometheus.CounterOpts{Name: "replay_bytes_total", Help: "Capture bytes fed to the book"})
	ReplayRecordsTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "replay_records_total", Help: "Capture records fed to the book"})
	ReplayDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "replay_dropped_total", Help: "Records dropped by the on-full drop policy"})
	ReplayChunkSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "replay_chunk_seconds", Help: "Wall time to submit one capture chunk", Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14)})
)

// Init registers the domain collectors plus the Go and process collectors on
// a private registry.
func Init(logger zerolog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		MessagesDecoded, MessagesApplied, BookApplyErrors,
		QueueDepth, QueueFullTotal,
		BestBidPrice, BestAskPrice, RestingOrders,
		ReplayBytesTotal, ReplayRecordsTotal, ReplayDroppedTotal, ReplayChunkSeconds,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info().Msg("Prometheus metrics initialized")
	return reg
}

// Handler exposes the registry for the admin mux.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
