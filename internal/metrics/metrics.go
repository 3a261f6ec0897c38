package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Checkout kasa işlemlerinin sayaçları. Nil alıcı ile çağrılabilir.
type Checkout struct {
	sales        *prometheus.CounterVec
	reservations *prometheus.CounterVec
	saleAmount   prometheus.Counter
}

func NewCheckout(reg prometheus.Registerer) *Checkout {
	m := &Checkout{
		sales: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "checkout_total",
			Help:      "Checkout attempts by outcome (rejected, submitted, failed).",
		}, []string{"outcome", "payment_type"}),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "serial_reservations_total",
			Help:      "Serial number reserve/release calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		saleAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "sales_net_amount_total",
			Help:      "Sum of net amounts of successfully submitted sales.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sales, m.reservations, m.saleAmount)
	}
	return m
}

func (m *Checkout) Rejected(paymentType string) {
	if m == nil {
		return
	}
	m.sales.WithLabelValues("rejected", paymentType).Inc()
}

func (m *Checkout) Submitted(paymentType string, net float64) {
	if m == nil {
		return
	}
	m.sales.WithLabelValues("submitted", paymentType).Inc()
	m.saleAmount.Add(net)
}

func (m *Checkout) Failed(paymentType string) {
	if m == nil {
		return
	}
	m.sales.WithLabelValues("failed", paymentType).Inc()
}

func (m *Checkout) Reservation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.reservations.WithLabelValues(operation, outcome).Inc()
}
