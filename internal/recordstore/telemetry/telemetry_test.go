package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/linagora/overture/internal/recordstore/telemetry"
)

func TestNewRecorder_RegistersAllInstruments(t *testing.T) {
	r, err := telemetry.NewRecorder(noop.NewMeterProvider().Meter("recordstore_test"))
	require.NoError(t, err)
	require.NotNil(t, r)
}

func TestRecorder_NilReceiverIsANoOp(t *testing.T) {
	var r *telemetry.Recorder
	assert.NotPanics(t, func() {
		r.CommitIssued(t.Context(), 3)
		r.CommitAcked(t.Context(), 1)
		r.CommitFailed(t.Context(), 1)
		r.Conflict(t.Context())
		r.RebaseApplied(t.Context())
		r.Rollback(t.Context())
	})
}

func TestRecorder_ZeroCountCallsDoNotPanic(t *testing.T) {
	r, err := telemetry.NewRecorder(noop.NewMeterProvider().Meter("recordstore_test"))
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		r.CommitIssued(t.Context(), 0)
		r.CommitAcked(t.Context(), 0)
	})
}
