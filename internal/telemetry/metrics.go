package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics tracks the observable state of the execution engine: cost-unit
// consumption, substate store traffic, call-frame invocation behavior,
// and the fee reserve.
type Metrics struct {
	// Fee reserve.
	CostUnitsConsumed prometheus.Histogram
	CostUnitExhausted prometheus.Counter
	FeeReserveBalance prometheus.Gauge

	// Substate store.
	SubstateReads  prometheus.Counter
	SubstateWrites prometheus.Counter

	// Call-frame kernel.
	InvocationsTotal prometheus.Counter
	InvocationDepth  prometheus.Histogram
	BorrowConflicts  prometheus.Counter

	// Transaction executor.
	TxCommitted  prometheus.Counter
	TxRejected   prometheus.Counter
	TxFailed     prometheus.Counter
	ExecutionLatency prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics under namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,

		CostUnitsConsumed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fee",
			Name:      "cost_units_consumed",
			Help:      "Cost units consumed per transaction.",
			Buckets:   prometheus.ExponentialBuckets(1000, 2, 12),
		}),
		CostUnitExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fee",
			Name:      "cost_unit_exhausted_total",
			Help:      "Total transactions aborted by cost-unit exhaustion.",
		}),
		FeeReserveBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fee",
			Name:      "reserve_balance",
			Help:      "Fee-resource amount currently locked in the active reserve.",
		}),

		SubstateReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "substate_reads_total",
			Help:      "Total substate store reads.",
		}),
		SubstateWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "substate_writes_total",
			Help:      "Total substate store writes.",
		}),

		InvocationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kernel",
			Name:      "invocations_total",
			Help:      "Total call-frame invocations (function and method calls).",
		}),
		InvocationDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "kernel",
			Name:      "invocation_depth",
			Help:      "Call-frame depth reached by invocations.",
			Buckets:   prometheus.LinearBuckets(1, 1, 16),
		}),
		BorrowConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kernel",
			Name:      "borrow_conflicts_total",
			Help:      "Total substate borrow conflicts detected.",
		}),

		TxCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "tx_committed_total",
			Help:      "Total transactions committed successfully.",
		}),
		TxRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "tx_rejected_total",
			Help:      "Total transactions rejected during pre-execution validation.",
		}),
		TxFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "tx_failed_total",
			Help:      "Total transactions committed with a runtime failure (fee only).",
		}),
		ExecutionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "latency_seconds",
			Help:      "Transaction execution latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
	}

	reg.MustRegister(
		m.CostUnitsConsumed, m.CostUnitExhausted, m.FeeReserveBalance,
		m.SubstateReads, m.SubstateWrites,
		m.InvocationsTotal, m.InvocationDepth, m.BorrowConflicts,
		m.TxCommitted, m.TxRejected, m.TxFailed, m.ExecutionLatency,
	)

	return m
}

// NopMetrics returns a Metrics instance that discards all observations,
// for use by tests and one-shot CLI invocations that skip the registry.
func NopMetrics() *Metrics {
	return &Metrics{
		CostUnitsConsumed: prometheus.NewHistogram(prometheus.HistogramOpts{Name: "nop_cuc"}),
		CostUnitExhausted: prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_cue"}),
		FeeReserveBalance: prometheus.NewGauge(prometheus.GaugeOpts{Name: "nop_frb"}),
		SubstateReads:     prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_sr"}),
		SubstateWrites:    prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_sw"}),
		InvocationsTotal:  prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_it"}),
		InvocationDepth:   prometheus.NewHistogram(prometheus.HistogramOpts{Name: "nop_id"}),
		BorrowConflicts:   prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_bc"}),
		TxCommitted:       prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_tc"}),
		TxRejected:        prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_tr"}),
		TxFailed:          prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_tf"}),
		ExecutionLatency:  prometheus.NewHistogram(prometheus.HistogramOpts{Name: "nop_el"}),
		registry:          prometheus.NewRegistry(),
	}
}

// Registry returns the Prometheus registry for this metrics instance.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MetricsServer serves Prometheus metrics via HTTP.
type MetricsServer struct {
	server *http.Server
	logger *zap.Logger
}

// NewMetricsServer creates a metrics HTTP server.
func NewMetricsServer(addr string, metrics *Metrics, logger *zap.Logger) *MetricsServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{}))

	return &MetricsServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger,
	}
}

// Start begins serving metrics.
func (ms *MetricsServer) Start() error {
	ms.logger.Info("metrics server starting", zap.String("addr", ms.server.Addr))
	if err := ms.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the metrics server.
func (ms *MetricsServer) Stop() error {
	return ms.server.Close()
}
