package service

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	txTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pob_voting_tx_total",
		Help: "Transactions by method and outcome.",
	}, []string{"method", "outcome"})
	txLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pob_voting_tx_latency_seconds",
		Help:    "Transaction execution latency.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"method"})
	votesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pob_voting_votes_total",
		Help: "Committed votes by entity.",
	}, []string{"entity"})
	roundsRegistered = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pob_voting_rounds_registered",
		Help: "Rounds known to the round registry.",
	})
	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pob_voting_queue_depth",
		Help: "Transactions waiting in the queue.",
	})
)

func init() {
	prometheus.MustRegister(txTotal, txLatency, votesTotal, roundsRegistered, queueDepth)
}

// outcome buckets an execution error for the tx counter.
func outcome(err error) string {
	switch errors.Cause(err) {
	case nil:
		return "ok"
	case ErrUnknownMethod, ErrSenderMismatch, ErrStaleNonce:
		return "rejected"
	}
	return "failed"
}

// MetricsCollector keeps per-method timing next to the prometheus series.
type MetricsCollector struct {
	mu      sync.RWMutex
	methods map[string]*methodStats
}

type methodStats struct {
	firstAt time.Time
	lastAt  time.Time
	count   int
	failed  int
	total   time.Duration
}

// OperationMetrics contains timing information for one method
type OperationMetrics struct {
	Method         string    `json:"method"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Count          int       `json:"count"`
	Failed         int       `json:"failed"`
	ProcessingTime int64     `json:"processing_time_ms"`
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{methods: make(map[string]*methodStats)}
}

func (mc *MetricsCollector) stats(method string) *methodStats {
	st, ok := mc.methods[method]
	if !ok {
		st = &methodStats{}
		mc.methods[method] = st
	}
	return st
}

// RecordStart marks the start of a transaction
func (mc *MetricsCollector) RecordStart(method string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	st := mc.stats(method)
	if st.count == 0 {
		st.firstAt = time.Now()
	}
	st.count++
}

// RecordEnd marks the end of a transaction
func (mc *MetricsCollector) RecordEnd(method string, d time.Duration, err error) {
	txTotal.WithLabelValues(method, outcome(err)).Inc()
	txLatency.WithLabelValues(method).Observe(d.Seconds())

	mc.mu.Lock()
	defer mc.mu.Unlock()

	st := mc.stats(method)
	st.lastAt = time.Now()
	st.total += d
	if err != nil {
		st.failed++
	}
}

// GetMetrics returns the collected metrics ordered by method
func (mc *MetricsCollector) GetMetrics() []OperationMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	out := make([]OperationMetrics, 0, len(mc.methods))
	for m, st := range mc.methods {
		out = append(out, OperationMetrics{
			Method:         m,
			StartTime:      st.firstAt,
			EndTime:        st.lastAt,
			Count:          st.count,
			Failed:         st.failed,
			ProcessingTime: st.total.Milliseconds(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}

func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.methods = make(map[string]*methodStats)
}
