package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Process-level gauges, registered once at package init per the exporter
// pattern: a fixed set of GaugeVecs updated on a sampling tick rather than
// built fresh per scrape.
var (
	poolSizeGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "socket_pool_size",
		Help: "Current number of pooled upstream connections",
	}, []string{"instance"})

	poolMaxSizeGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "socket_pool_max_size",
		Help: "Configured maximum pool size",
	}, []string{"instance"})

	endpointSuccessGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "socket_pool_endpoint_success_total",
		Help: "Lifetime successful sends per endpoint",
	}, []string{"instance", "endpoint"})

	endpointFailedGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "socket_pool_endpoint_failed_total",
		Help: "Lifetime failed sends per endpoint",
	}, []string{"instance", "endpoint"})

	uptimeGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "socket_pool_uptime_seconds",
		Help: "Seconds since daemon start",
	}, []string{"instance"})
)

func init() {
	prometheus.MustRegister(poolSizeGauge, poolMaxSizeGauge, endpointSuccessGauge, endpointFailedGauge, uptimeGauge)
}

// Sample is one point-in-time snapshot fed to CollectMetrics.
type Sample struct {
	Instance    string
	PoolSize    int
	PoolMaxSize int
	UptimeS     float64
	Endpoints   []Entry
}

// CollectMetrics pushes a fresh Sample into the registered gauges. Called
// by the metrics maintenance tick, never on the request path.
func CollectMetrics(s Sample) {
	poolSizeGauge.WithLabelValues(s.Instance).Set(float64(s.PoolSize))
	poolMaxSizeGauge.WithLabelValues(s.Instance).Set(float64(s.PoolMaxSize))
	uptimeGauge.WithLabelValues(s.Instance).Set(s.UptimeS)
	for _, e := range s.Endpoints {
		endpointSuccessGauge.WithLabelValues(s.Instance, e.Endpoint).Set(float64(e.Success))
		endpointFailedGauge.WithLabelValues(s.Instance, e.Endpoint).Set(float64(e.Failed))
	}
}

// Handler exposes the Prometheus exposition format for mounting into the
// admin HTTP server or a standalone listener.
func Handler() http.Handler {
	return promhttp.Handler()
}
