// Package metrics serves the Prometheus registry exposed next to the
// module API.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer owns the collectors shared with the module server and
// serves them over HTTP.
type MetricsServer struct {
	registry *prometheus.Registry
	srv      *http.Server

	// RequestsTotal counts module API requests by route and status code.
	RequestsTotal *prometheus.CounterVec
}

// New builds a metrics server listening on addr. An empty addr builds
// the collectors without ever starting a listener, so callers can
// construct unconditionally and gate ListenAndServe on the address.
func New(namespace, addr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Module API requests by route and status code.",
	}, []string{"route", "code"})

	if err := registry.Register(requestsTotal); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &MetricsServer{
		registry: registry,
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		RequestsTotal: requestsTotal,
	}, nil
}

// ListenAndServe blocks serving the metrics endpoint.
func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
