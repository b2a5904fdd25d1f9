package api

import (
	"log"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-player labels, to keep the
// cardinality bound regardless of how many sessions churn through).
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "minionwar_tick_duration_seconds",
		Help:    "Time spent advancing one simulation tick",
		Buckets: []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05},
	})

	playerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "minionwar_player_count",
		Help: "Currently connected players",
	})

	minionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "minionwar_minion_count",
		Help: "Total minions alive across all fleets",
	})

	oracleCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minionwar_oracle_cache_hits_total",
		Help: "Adjudications served from the persistent cache without an oracle call",
	})

	oracleCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minionwar_oracle_cache_misses_total",
		Help: "Adjudications that required a live oracle call or random fallback",
	})

	oracleQueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minionwar_oracle_queue_dropped_total",
		Help: "Adjudications dropped because the in-flight queue was full (spec §5 backpressure)",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minionwar_connection_rejected_total",
		Help: "Connections rejected by rate limiter or connection-count limit",
	}, []string{"reason"}) // bounded: "rate_limit", "ws_total_limit", "ws_ip_limit"

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "minionwar_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minionwar_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "minionwar_ws_connections_active",
		Help: "Currently active WebSocket sessions",
	})

	infectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minionwar_infections_total",
		Help: "Collision outcomes applied",
	}, []string{"outcome"}) // bounded: "convert", "max_fleet_kill"
)

// ObservabilityConfig configures the debug/metrics server.
type ObservabilityConfig struct {
	Enabled    bool
	ListenAddr string // MUST be loopback-only in production
}

// DefaultObservabilityConfig returns safe defaults.
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// StartDebugServer starts the internal metrics server. It is kept separate
// from the public game server (spec §6's /health, /test, /ws, static assets)
// so scraping never shares a listener with player traffic.
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 debug server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	go func() {
		log.Printf("📊 debug server starting on %s", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
			log.Printf("⚠️ debug server error: %v", err)
		}
	}()

	return nil
}

// RecordTick records tick timing for metrics.
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// UpdatePlayerCount updates the player gauge.
func UpdatePlayerCount(count int) {
	playerCount.Set(float64(count))
}

// UpdateMinionCount updates the minion gauge.
func UpdateMinionCount(count int) {
	minionCount.Set(float64(count))
}

// RecordOracleCacheHit/RecordOracleCacheMiss track adjudication provenance.
func RecordOracleCacheHit()  { oracleCacheHits.Inc() }
func RecordOracleCacheMiss() { oracleCacheMisses.Inc() }

// RecordOracleQueueDropped increments the backpressure-drop counter.
func RecordOracleQueueDropped() {
	oracleQueueDropped.Inc()
}

// RecordInfection increments the infection-outcome counter. outcome must be
// "convert" or "max_fleet_kill".
func RecordInfection(outcome string) {
	infectionsTotal.WithLabelValues(outcome).Inc()
}

// RecordConnectionRejected increments the rejection counter. reason must be
// one of: "rate_limit", "ws_total_limit", "ws_ip_limit".
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics.
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates the WebSocket session gauge.
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// LogPeriodicStats prints a human-readable one-line summary of server load,
// grounded on the teacher's verbose `log.Printf` operational style.
func LogPeriodicStats(players, minions int, cacheEntries int) {
	log.Printf("📈 %s players, %s minions, %s cached adjudications",
		humanize.Comma(int64(players)), humanize.Comma(int64(minions)), humanize.Comma(int64(cacheEntries)))
}
