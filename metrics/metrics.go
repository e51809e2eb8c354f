// Package metrics exposes the indexer's prometheus collectors and the
// metrics listener.
package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ChainHeight is the canonical store's block height.
	ChainHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_chain_height",
			Help: "Height of the canonical store",
		},
	)

	// TailLength is the number of low-confirmation blocks held above the
	// canonical store.
	TailLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_tail_length",
			Help: "Number of blocks in the unconfirmed tail",
		},
	)

	// MempoolSize is the number of mempool transactions in the current view.
	MempoolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_mempool_size",
			Help: "Number of mempool transactions tracked",
		},
	)

	// UTXOCount is the number of unspent outputs in the canonical store.
	UTXOCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_utxo_count",
			Help: "Unspent outputs in the canonical store",
		},
	)

	// BlocksPromotedTotal counts blocks promoted into the canonical store.
	BlocksPromotedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_blocks_promoted_total",
			Help: "Blocks promoted from the tail into the canonical store",
		},
	)

	// UpdateCyclesTotal counts RPC poll cycles by outcome.
	UpdateCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_update_cycles_total",
			Help: "RPC update cycles",
		},
		[]string{"status"},
	)

	// RPCRequestsTotal counts outbound JSON-RPC requests by method and status.
	RPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_rpc_requests_total",
			Help: "Outbound JSON-RPC requests",
		},
		[]string{"method", "status"},
	)

	// SnapshotSeconds tracks on-disk snapshot durations.
	SnapshotSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "indexer_snapshot_seconds",
			Help:    "Time spent writing the store file",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(ChainHeight)
	prometheus.MustRegister(TailLength)
	prometheus.MustRegister(MempoolSize)
	prometheus.MustRegister(UTXOCount)
	prometheus.MustRegister(BlocksPromotedTotal)
	prometheus.MustRegister(UpdateCyclesTotal)
	prometheus.MustRegister(RPCRequestsTotal)
	prometheus.MustRegister(SnapshotSeconds)
}

// StartServer starts the metrics HTTP server on the given address.
func StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		log.Printf("[metrics] listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}
