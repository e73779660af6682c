package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorderCounts(t *testing.T) {
	r := NewPrometheus()

	before := testutil.ToFloat64(scansTotal.WithLabelValues("found", "direct"))
	r.ObserveScan("found", "direct", 25*time.Millisecond, 2048)
	after := testutil.ToFloat64(scansTotal.WithLabelValues("found", "direct"))
	assert.InDelta(t, before+1, after, 1e-9)

	beforeHit := testutil.ToFloat64(decodeAttemptsTotal.WithLabelValues("goqr", "hit"))
	r.ObserveAttempt("goqr", true)
	r.ObserveAttempt("goqr", false)
	afterHit := testutil.ToFloat64(decodeAttemptsTotal.WithLabelValues("goqr", "hit"))
	assert.InDelta(t, beforeHit+1, afterHit, 1e-9)
}

func TestNopRecorder(t *testing.T) {
	r := Nop()
	r.ObserveScan("miss", "none", time.Second, 0)
	r.ObserveAttempt("zxing-hybrid", false)
}
