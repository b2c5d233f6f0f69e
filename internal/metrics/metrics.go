// Package metrics holds the service's domain-level Prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts the domain events worth watching on a dashboard.
type Metrics struct {
	Uploads       prometheus.Counter
	Downloads     prometheus.Counter
	SharesIssued  prometheus.Counter
	ChatMessages  prometheus.Counter
	WSConnections prometheus.Gauge
}

// New registers the domain collectors on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileshare_uploads_total",
			Help: "Total files ingested.",
		}),
		Downloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileshare_downloads_total",
			Help: "Total recorded downloads, direct and via share links.",
		}),
		SharesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileshare_share_links_issued_total",
			Help: "Total share tokens issued.",
		}),
		ChatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileshare_chat_messages_total",
			Help: "Total chat messages posted.",
		}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fileshare_ws_connections",
			Help: "Currently connected websocket sessions.",
		}),
	}
	for _, c := range []prometheus.Collector{m.Uploads, m.Downloads, m.SharesIssued, m.ChatMessages, m.WSConnections} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
