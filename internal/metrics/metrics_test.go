package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	m := New()
	require.NotNil(t, m.Registry)

	m.IncProcessed()
	m.IncProcessed()
	m.IncSucceeded()
	m.IncFailed()
	m.IncFallback()
	m.IncRemoteFailure()
	m.IncCheckpointSave()
	m.ObserveRowDuration(250 * time.Millisecond)
	m.IncRequest("score_company")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsSucceeded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackCalls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteScoreFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckpointSaves))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("score_company")))
}

func TestMetrics_NilReceiverIsNoOp(t *testing.T) {
	var m *Metrics

	// Every recorder must be callable without a registry behind it.
	m.IncProcessed()
	m.IncSucceeded()
	m.IncFailed()
	m.IncFallback()
	m.IncRemoteFailure()
	m.IncCheckpointSave()
	m.ObserveRowDuration(time.Second)
	m.IncRequest("health")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.IncProcessed()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.RowsProcessed))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RowsProcessed))
}
