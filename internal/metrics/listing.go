package metrics

import "github.com/prometheus/client_golang/prometheus"

var listingTransitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "listing",
		Name:      "transitions_total",
		Help:      "按类型统计的房源生命周期变更次数。",
	},
	[]string{"transition"},
)

// ListingTransition 记录一次生命周期变更（created、published、toggled、edited、deleted）。
func ListingTransition(kind string) {
	listingTransitions.WithLabelValues(kind).Inc()
}
