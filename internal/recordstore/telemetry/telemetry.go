// Package telemetry wires commit-pipeline counters into OpenTelemetry. It is
// purely observational — the core records no metrics itself, callers bridge
// Store.OnObserve and CommitChanges call sites into Recorder methods.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// Recorder holds the counters a host wires into a Store via
// Store.OnObserve and around CommitChanges/DiscardChanges/reconcile calls.
type Recorder struct {
	commitsIssued  metric.Int64Counter
	commitsAcked   metric.Int64Counter
	commitsFailed  metric.Int64Counter
	conflicts      metric.Int64Counter
	rebasesApplied metric.Int64Counter
	rollbacks      metric.Int64Counter
}

// NewRecorder creates the instrument set under meter, named
// "recordstore.<name>".
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	var r Recorder
	var err error

	if r.commitsIssued, err = meter.Int64Counter("recordstore.commits_issued",
		metric.WithDescription("CommitChanges calls that produced a non-empty changeset")); err != nil {
		return nil, err
	}
	if r.commitsAcked, err = meter.Int64Counter("recordstore.commits_acked",
		metric.WithDescription("Records acked via SourceDidCommitCreate/Update/Destroy")); err != nil {
		return nil, err
	}
	if r.commitsFailed, err = meter.Int64Counter("recordstore.commits_failed",
		metric.WithDescription("Records reported via SourceDidNotCreate/Update/Destroy or SourceDidError")); err != nil {
		return nil, err
	}
	if r.conflicts, err = meter.Int64Counter("recordstore.conflicts",
		metric.WithDescription("SourceDidFetchUpdates calls that landed on a Dirty record")); err != nil {
		return nil, err
	}
	if r.rebasesApplied, err = meter.Int64Counter("recordstore.rebases_applied",
		metric.WithDescription("Conflicts where a local edit survived rebase")); err != nil {
		return nil, err
	}
	if r.rollbacks, err = meter.Int64Counter("recordstore.rollbacks",
		metric.WithDescription("Records restored from a rollback snapshot (DiscardChanges, SourceDidError)")); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Recorder) CommitIssued(ctx context.Context, n int64) {
	if r == nil || n == 0 {
		return
	}
	r.commitsIssued.Add(ctx, n)
}

func (r *Recorder) CommitAcked(ctx context.Context, n int64) {
	if r == nil || n == 0 {
		return
	}
	r.commitsAcked.Add(ctx, n)
}

func (r *Recorder) CommitFailed(ctx context.Context, n int64) {
	if r == nil || n == 0 {
		return
	}
	r.commitsFailed.Add(ctx, n)
}

func (r *Recorder) Conflict(ctx context.Context) {
	if r == nil {
		return
	}
	r.conflicts.Add(ctx, 1)
}

func (r *Recorder) RebaseApplied(ctx context.Context) {
	if r == nil {
		return
	}
	r.rebasesApplied.Add(ctx, 1)
}

func (r *Recorder) Rollback(ctx context.Context) {
	if r == nil {
		return
	}
	r.rollbacks.Add(ctx, 1)
}
