package cart

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "Cart mutations by operation and result",
		},
		[]string{"op", "result"},
	)

	linesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_cart_lines",
		Help: "Distinct lines currently in the cart",
	})

	unitsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_cart_units",
		Help: "Sum of line quantities currently in the cart",
	})
)
