package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialverse_realtime_events_published_total",
			Help: "Change events published, by table and kind.",
		},
		[]string{"table", "kind"},
	)

	eventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialverse_realtime_events_delivered_total",
			Help: "Change events delivered to subscription handlers, by table.",
		},
		[]string{"table"},
	)

	handlerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialverse_realtime_handler_panics_total",
			Help: "Subscription handlers that panicked while handling an event.",
		},
		[]string{"table"},
	)

	activeSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "socialverse_realtime_subscriptions",
			Help: "Currently registered subscriptions.",
		},
	)

	wsConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "socialverse_realtime_ws_connections",
			Help: "Open realtime websocket connections.",
		},
	)

	wsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "socialverse_realtime_ws_slow_consumers_total",
			Help: "Websocket connections closed because the send buffer was full.",
		},
	)
)
