package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCheckoutCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckout(reg)

	m.Submitted("cash", 180)
	m.Submitted("cash", 20)
	m.Failed("card")
	m.Rejected("split")
	m.Reservation("reserve", nil)
	m.Reservation("reserve", errors.New("taken"))

	if got := testutil.ToFloat64(m.sales.WithLabelValues("submitted", "cash")); got != 2 {
		t.Errorf("submitted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.saleAmount); got != 200 {
		t.Errorf("net amount = %v, want 200", got)
	}
	if got := testutil.ToFloat64(m.reservations.WithLabelValues("reserve", "error")); got != 1 {
		t.Errorf("reserve errors = %v, want 1", got)
	}
}

func TestNilCheckoutIsNoop(t *testing.T) {
	var m *Checkout
	m.Submitted("cash", 1)
	m.Failed("cash")
	m.Rejected("cash")
	m.Reservation("release", nil)
}
