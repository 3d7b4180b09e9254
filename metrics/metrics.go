package metrics

import (
	"github.com/quietdns/vdns/config"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//nolint:gochecknoglobals
var (
	reg     = prometheus.NewRegistry()
	enabled bool
)

// RegisterMetric registers prometheus collector
func RegisterMetric(c prometheus.Collector) {
	_ = reg.Register(c)
}

// IsEnabled reports whether metrics collection was enabled via Start.
func IsEnabled() bool {
	return enabled
}

func StartCollection() {
	_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	_ = reg.Register(collectors.NewGoCollector())

	RegisterEventListeners()
}

// Start mounts the prometheus metrics endpoint on router if metrics are enabled.
func Start(router chi.Router, cfg config.MetricsConfig) {
	if !cfg.IsEnabled() {
		return
	}

	enabled = true

	StartCollection()

	router.Handle(cfg.Path, promhttp.InstrumentMetricHandler(reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}
