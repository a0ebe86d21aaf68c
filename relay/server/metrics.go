package server

import (
	"fmt"
	"time"

	"github.com/Trinoooo/rawd/relay/logs"
	"github.com/bytedance/gopkg/util/gopool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
)

const pushInterval = 5 * time.Second

type MetricsHelper struct {
	ConnectionAcceptCounter prometheus.Counter // accepted connections
	LiveConnectionsGauge    prometheus.Gauge   // current live set size, listener excluded
	RelayedFrameCounter     prometheus.Counter // broadcast fan-out passes
	RelayedBytesCounter     prometheus.Counter // payload bytes per sender read
}

// NewMetricsHelper builds the relay metric set. With a non-empty gateway
// address a pusher goroutine ships the registry periodically.
func NewMetricsHelper(gateway string) *MetricsHelper {
	helper := &MetricsHelper{
		ConnectionAcceptCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rawd_connection_accept_counter",
		}),
		LiveConnectionsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rawd_live_connections",
		}),
		RelayedFrameCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rawd_relayed_frame_counter",
		}),
		RelayedBytesCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rawd_relayed_bytes_counter",
		}),
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		helper.ConnectionAcceptCounter,
		helper.LiveConnectionsGauge,
		helper.RelayedFrameCounter,
		helper.RelayedBytesCounter,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if gateway != "" {
		pusher := push.New(gateway, "rawd").Gatherer(registry)
		gopool.Go(func() {
			for {
				if err := pusher.Add(); err != nil {
					logs.Warn(fmt.Sprintf("prometheus pusher push failed. err: %v", err))
				}
				time.Sleep(pushInterval)
			}
		})
	}

	return helper
}
