package aggregated

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wave_aggregated_merchant_resolutions_total",
	Help: "Aggregated merchant resolutions by the source of the resolved id (none when no id was used).",
}, []string{"source"})

// GetResolutionsTotal exposes the resolution counter.
func GetResolutionsTotal() *prometheus.CounterVec {
	return resolutionsTotal
}
