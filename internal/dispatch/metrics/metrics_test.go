package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveDispatchCountsOutcome(t *testing.T) {
	before := testutil.ToFloat64(dispatchTotal.WithLabelValues(OutcomeQueued))
	ObserveDispatch(OutcomeQueued, 10*time.Millisecond)
	after := testutil.ToFloat64(dispatchTotal.WithLabelValues(OutcomeQueued))
	if after-before != 1 {
		t.Fatalf("expected queued counter to grow by 1, got %v", after-before)
	}
}

func TestPendingCounters(t *testing.T) {
	pushed := testutil.ToFloat64(pendingPushed)
	drained := testutil.ToFloat64(pendingDrained)
	IncPendingPushed()
	IncPendingDrained()
	IncPendingDrained()
	if testutil.ToFloat64(pendingPushed)-pushed != 1 || testutil.ToFloat64(pendingDrained)-drained != 2 {
		t.Fatalf("unexpected pending counters")
	}
}
