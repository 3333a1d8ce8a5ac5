package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CallsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_calls_active",
		Help: "Currently active call sessions",
	})

	CallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_calls_total",
		Help: "Total call sessions handled",
	})

	MediaFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_media_frames_total",
		Help: "Inbound telephony media frames received",
	})

	AudioDeltas = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_audio_deltas_total",
		Help: "Gateway audio deltas forwarded to the telephony channel",
	})

	GatewayEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_gateway_events_total",
		Help: "Gateway events received by type",
	}, []string{"type"})

	Turns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_turns_total",
		Help: "Completed conversation turns",
	})

	Interruptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_interruptions_total",
		Help: "Barge-in interruptions handled",
	})

	SnapshotErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_snapshot_errors_total",
		Help: "Failed conversation snapshot persists",
	})

	StreamErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_stream_errors_total",
		Help: "Unexpected errors that ended a pump",
	})
)
