package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "njmart_orders_total",
			Help: "Order submissions by outcome",
		},
		[]string{"status"}, // accepted, rejected, transport_error
	)

	CouponsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "njmart_coupons_total",
			Help: "Coupon validations by outcome",
		},
		[]string{"status"}, // applied, rejected, transport_error
	)

	CatalogCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "njmart_catalog_cache_total",
			Help: "Product catalog cache lookups",
		},
		[]string{"result"}, // hit, miss
	)
)

func init() {
	prometheus.MustRegister(OrdersTotal, CouponsTotal, CatalogCacheHits)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
