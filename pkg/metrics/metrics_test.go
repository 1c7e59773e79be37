package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)

	LeaseAcquireTotal.WithLabelValues(OutcomeAcquired).Inc()
	LeaseReleaseTotal.WithLabelValues(OutcomeReleased).Inc()
	LeaseVerifyTotal.WithLabelValues(ResultValid).Inc()
	LeaseStuckClearedTotal.Add(2)
	EventsPublishedTotal.WithLabelValues("lease.acquired", OutcomeSent).Inc()
	HTTPRequestDuration.WithLabelValues("GET", "200").Observe(0.01)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) < 6 {
		t.Fatalf("expected 6 metric families, got %d", len(mfs))
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register(reg)
}

func TestNewRegistryIncludesRuntimeCollectors(t *testing.T) {
	reg := NewRegistry()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatal("expected go/process collectors to expose metrics")
	}
}
