package registry

import "github.com/prometheus/client_golang/prometheus"

const (
	resultDelivered = "delivered"
	resultOffline   = "offline"
	resultFailed    = "failed"
)

// Metrics はレジストリのPrometheusメトリクス。
// nilのMetricsに対する記録は何もしない。
type Metrics struct {
	connections prometheus.Gauge
	pushTotal   *prometheus.CounterVec
}

// NewMetrics はメトリクスを生成してregに登録する。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_registry_connections",
			Help: "レジストリに登録されている接続中のユーザー数",
		}),
		pushTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notification_registry_push_total",
				Help: "リアルタイム配信の試行回数（結果別）",
			},
			[]string{"event", "result"},
		),
	}
	reg.MustRegister(m.connections, m.pushTotal)
	return m
}

func (m *Metrics) setConnections(n int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(n))
}

func (m *Metrics) observePush(event, result string) {
	if m == nil {
		return
	}
	m.pushTotal.WithLabelValues(event, result).Inc()
}
