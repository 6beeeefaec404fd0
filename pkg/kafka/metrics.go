package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Publish outcomes recorded in eventsPublished.
const (
	resultPublished = "published"
	resultFailed    = "failed"
)

var (
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "events_published_total",
			Help:      "Storefront events handed to Kafka, by topic and result",
		},
		[]string{"topic", "result"},
	)

	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "event_publish_duration_seconds",
			Help:      "Time spent writing one storefront event to Kafka",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"topic"},
	)
)

// recordPublish counts one publish attempt on topic.
func recordPublish(topic string, seconds float64, err error) {
	publishDuration.WithLabelValues(topic).Observe(seconds)
	result := resultPublished
	if err != nil {
		result = resultFailed
	}
	eventsPublished.WithLabelValues(topic, result).Inc()
}
