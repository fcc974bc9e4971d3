package internal

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sensiblebit/ddscert"
)

// LoadMetrics counts certificate loads and tracks expiry of loaded
// certificates. It implements ddscert.Observer.
type LoadMetrics struct {
	registry *prometheus.Registry

	loads  *prometheus.CounterVec
	expiry *prometheus.GaugeVec
	shared prometheus.Counter
}

// NewLoadMetrics creates metrics registered on a private registry.
func NewLoadMetrics() *LoadMetrics {
	m := &LoadMetrics{
		registry: prometheus.NewRegistry(),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ddscert_certificate_loads_total",
			Help: "Total number of certificate load attempts",
		}, []string{"scheme", "result"}), // result: ok, unsupported_scheme, io_error, decode_error
		expiry: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ddscert_certificate_expiry_timestamp_seconds",
			Help: "Unix timestamp when a loaded certificate expires",
		}, []string{"uri", "format"}),
		shared: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ddscert_certificate_shared_total",
			Help: "Total number of loads served by sharing an already decoded certificate",
		}),
	}
	m.registry.MustRegister(m.loads, m.expiry, m.shared)
	return m
}

// Registry returns the registry holding the metrics.
func (m *LoadMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveLoad records one load outcome.
func (m *LoadMetrics) ObserveLoad(uri string, scheme ddscert.Scheme, dec *ddscert.Decoded, err error) {
	if err != nil {
		m.loads.WithLabelValues(scheme.String(), ddscert.ErrorKind(err)).Inc()
		return
	}
	m.loads.WithLabelValues(scheme.String(), "ok").Inc()
	m.expiry.WithLabelValues(uri, string(dec.Format)).Set(float64(dec.Cert.NotAfter.Unix()))
}

// RecordShared counts a load satisfied by cloning a cached certificate.
func (m *LoadMetrics) RecordShared() {
	m.shared.Inc()
}

// WriteTextfile writes the metrics in Prometheus text format to path, for
// pickup by a node exporter textfile collector.
func (m *LoadMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
