package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOp(t *testing.T) {
	before := testutil.ToFloat64(OpsTotal.WithLabelValues("metrics_test"))
	ObserveOp("metrics_test", time.Now())
	ObserveOp("metrics_test", time.Now())
	after := testutil.ToFloat64(OpsTotal.WithLabelValues("metrics_test"))
	assert.Equal(t, before+2, after)
}
