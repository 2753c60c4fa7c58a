// Package monitoring holds the prometheus collectors of the feed core.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeOK is the outcome label of a successful operation. Failed
// operations are labelled with their error kind.
const OutcomeOK = "ok"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Operations *prometheus.CounterVec

	OperationDuration *prometheus.HistogramVec

	StreamRecords *prometheus.CounterVec

	FanoutEntries prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chirp_operations_total",
				Help: "Total number of feed operations by outcome",
			},
			[]string{"op", "outcome"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chirp_operation_duration_seconds",
				Help:    "Duration of feed operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		StreamRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chirp_stream_records_total",
				Help: "Total number of stream records consumed by the fan-out handler",
			},
			[]string{"event"},
		),
		FanoutEntries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chirp_fanout_entries_total",
				Help: "Total number of home timeline entries written by fan-out",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Operations, m.OperationDuration, m.StreamRecords, m.FanoutEntries)
	}
	return m
}

// ObserveOperation records one finished operation.
func (m *Metrics) ObserveOperation(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, outcome).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveStreamRecord counts one consumed stream record.
func (m *Metrics) ObserveStreamRecord(event string) {
	if m == nil {
		return
	}
	m.StreamRecords.WithLabelValues(event).Inc()
}

// ObserveFanout counts timeline entries written for followers.
func (m *Metrics) ObserveFanout(entries int) {
	if m == nil || entries <= 0 {
		return
	}
	m.FanoutEntries.Add(float64(entries))
}
