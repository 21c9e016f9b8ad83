package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAdapterRun(t *testing.T) {
	before := testutil.ToFloat64(AdapterRunsTotal.WithLabelValues("unit", "failure"))
	RecordAdapterRun("unit", false, time.Second)
	after := testutil.ToFloat64(AdapterRunsTotal.WithLabelValues("unit", "failure"))
	assert.Equal(t, before+1, after)
}

func TestRecordSignalsAndRetry(t *testing.T) {
	RecordSignals("unit", "news", 3)
	assert.GreaterOrEqual(t, testutil.ToFloat64(SignalsCollectedTotal.WithLabelValues("unit", "news")), 3.0)

	before := testutil.ToFloat64(AdapterRetriesTotal.WithLabelValues("unit"))
	RecordRetry("unit")
	assert.Equal(t, before+1, testutil.ToFloat64(AdapterRetriesTotal.WithLabelValues("unit")))
}

func TestRecordPipelineRunSetsGauge(t *testing.T) {
	RecordPipelineRun(true, 4)
	assert.Equal(t, 4.0, testutil.ToFloat64(RisingSignals))

	RecordPipelineRun(false, 9)
	assert.Equal(t, 4.0, testutil.ToFloat64(RisingSignals), "failed runs leave the gauge")
}
