// Package metrics counts reported errors in Prometheus.
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/isseis/go-ezerr/ezerr"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "ezerr"

// Publisher is an ezerr.Publisher that updates Prometheus collectors.
type Publisher struct {
	reported *prometheus.CounterVec
	lastSeen *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer, namespace string) (*Publisher, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	p := &Publisher{
		reported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_reported_total",
			Help:      "Well-formed errors reported, by domain, code and main-thread flag.",
		}, []string{"domain", "code", "main_thread"}),
		lastSeen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_error_timestamp_seconds",
			Help:      "Unix time of the most recent report per domain.",
		}, []string{"domain"}),
	}
	for _, c := range []prometheus.Collector{p.reported, p.lastSeen} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return p, nil
}

// Publish records ev.
func (p *Publisher) Publish(_ context.Context, ev ezerr.Event) {
	rec := ev.Record
	domain := labelValue(rec.Domain)
	p.reported.WithLabelValues(domain, labelValue(rec.Code), strconv.FormatBool(rec.MainThread)).Inc()
	if !rec.Timestamp.IsZero() {
		p.lastSeen.WithLabelValues(domain).Set(float64(rec.Timestamp.UnixNano()) / 1e9)
	}
}

// labelValue replaces invalid UTF-8, which WithLabelValues rejects with a panic.
func labelValue(v string) string {
	return strings.ToValidUTF8(v, "\uFFFD")
}
