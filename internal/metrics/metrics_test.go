package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Request("addItem", "ok")
	m.Request("addItem", "ok")
	m.Request("deleteItem", "Forbidden")
	m.Notification(OutcomeDelivered)
	m.Digest()

	if got := testutil.ToFloat64(m.requests.WithLabelValues("addItem", "ok")); got != 2 {
		t.Errorf("expected 2 addItem requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("deleteItem", "Forbidden")); got != 1 {
		t.Errorf("expected 1 forbidden delete, got %v", got)
	}
	if got := testutil.ToFloat64(m.notifications.WithLabelValues(OutcomeDelivered)); got != 1 {
		t.Errorf("expected 1 delivered notification, got %v", got)
	}
	if got := testutil.ToFloat64(m.digests); got != 1 {
		t.Errorf("expected 1 digest, got %v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Request("addItem", "ok")
	m.Notification(OutcomeDropped)
	m.Digest()
}
