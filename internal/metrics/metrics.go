// Package metrics holds the storefront's Prometheus collectors.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dairydelight"

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders persisted at checkout.",
	})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_status_transitions_total",
		Help:      "Order status changes by target status and outcome.",
	}, []string{"to", "result"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Outbox deliveries by channel and result.",
	}, []string{"channel", "result"})

	ReviewsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reviews_submitted_total",
		Help:      "Review submissions by result.",
	}, []string{"result"})

	CatalogQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "catalog_query_duration_seconds",
		Help:      "Latency of filtered catalog queries.",
		Buckets:   prometheus.DefBuckets,
	})
)

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
