package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_commands_total",
			Help: "Total order commands processed",
		},
		[]string{"command", "result"},
	)

	EventsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "order_change_events_published_total",
			Help: "Total change events published to the broker",
		},
	)

	SubscribedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_subscribed_clients",
			Help: "Currently connected websocket subscribers",
		},
	)
)

func init() {
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(SubscribedClients)
}
