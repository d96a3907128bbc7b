package netx

//
// Metrics definitions
//

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsSummaryObjectives returns the summary objectives for promauto.NewSummary.
func metricsSummaryObjectives() map[float64]float64 {
	// See https://grafana.com/blog/2022/03/01/how-summary-metrics-work-in-prometheus/
	return map[float64]float64{
		0.25: 0.010, // 0.240 <= φ <= 0.260
		0.5:  0.010, // 0.490 <= φ <= 0.510
		0.75: 0.010, // 0.740 <= φ <= 0.760
		0.9:  0.010, // 0.899 <= φ <= 0.901
		0.99: 0.001, // 0.989 <= φ <= 0.991
	}
}

var (
	// metricChannelsOpenedCount counts the channels we attempted to open
	// by result ("ok", "config_error", "connect_error", "handshake_error").
	metricChannelsOpenedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "updyn_channels_opened_count",
		Help: "Total number of channel open attempts by result",
	}, []string{"result"})

	// metricChannelsOpenGauge gauges the number of channels currently open.
	metricChannelsOpenGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "updyn_channels_open_gauge",
		Help: "The number of channels currently open",
	})

	// metricHandshakeDurationSeconds summarizes the duration of successful
	// TLS handshakes.
	metricHandshakeDurationSeconds = promauto.NewSummary(prometheus.SummaryOpts{
		Name:       "updyn_handshake_duration_seconds",
		Help:       "Summarizes the time to complete the TLS handshake (in seconds)",
		Objectives: metricsSummaryObjectives(),
	})

	// metricTransientRetriesCount counts the operations we retried after a
	// transient signal, by operation ("handshake", "read", "write").
	metricTransientRetriesCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "updyn_transient_retries_count",
		Help: "Total number of operations retried after a transient signal",
	}, []string{"operation"})

	// metricChannelBytesSentCount counts the bytes sent through channels.
	metricChannelBytesSentCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "updyn_channel_bytes_sent_count",
		Help: "Total number of bytes sent through channels",
	})

	// metricChannelBytesReceivedCount counts the bytes received through channels.
	metricChannelBytesReceivedCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "updyn_channel_bytes_received_count",
		Help: "Total number of bytes received through channels",
	})
)
