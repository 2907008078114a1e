package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveBeforeInitIsNoop(t *testing.T) {
	if appendTotal != nil {
		t.Skip("metrics already initialised by another test")
	}
	ObserveAppend("entrada", nil, time.Millisecond)
	IncDecision("commission", "approve", nil)
	AddSettledAmount("USD", 100)
}

func TestCountersAfterInit(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(appendTotal.WithLabelValues("entrada", resultSuccess))
	ObserveAppend("entrada", nil, time.Millisecond)
	ObserveAppend("entrada", errors.New("boom"), time.Millisecond)
	if got := testutil.ToFloat64(appendTotal.WithLabelValues("entrada", resultSuccess)); got != before+1 {
		t.Fatalf("append success counter want %v got %v", before+1, got)
	}

	AddSettledAmount("USD", 2000)
	AddSettledAmount("USD", 0)
	if got := testutil.ToFloat64(settledMinorTotal.WithLabelValues("USD")); got < 2000 {
		t.Fatalf("settled amount counter want >= 2000 got %v", got)
	}

	IncCommission("")
	if got := testutil.ToFloat64(commissionTotal.WithLabelValues("unknown")); got < 1 {
		t.Fatalf("empty outcome should count as unknown")
	}
}
