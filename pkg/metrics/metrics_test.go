package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/dtnitsch/article-analyzer/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	var r Recorder

	batches := testutil.ToFloat64(BatchesTotal)
	completed := testutil.ToFloat64(ItemsTotal.WithLabelValues("completed", ""))
	fetchErrors := testutil.ToFloat64(ItemsTotal.WithLabelValues("error", "FETCH-001"))

	r.BatchStarted(2)
	if got := testutil.ToFloat64(BatchesInProgress); got != 1 {
		t.Errorf("BatchesInProgress = %v, want 1", got)
	}
	r.PhaseFinished(models.PhaseFetch, 10*time.Millisecond, nil)
	r.PhaseFinished(models.PhaseFetch, 10*time.Millisecond, errors.New("boom"))
	r.ItemFinished(models.TaskCompleted, "")
	r.ItemFinished(models.TaskError, models.CodeFetch)
	r.BatchFinished(time.Second)

	if got := testutil.ToFloat64(BatchesInProgress); got != 0 {
		t.Errorf("BatchesInProgress = %v, want 0", got)
	}
	if got := testutil.ToFloat64(BatchesTotal) - batches; got != 1 {
		t.Errorf("BatchesTotal delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ItemsTotal.WithLabelValues("completed", "")) - completed; got != 1 {
		t.Errorf("completed delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ItemsTotal.WithLabelValues("error", "FETCH-001")) - fetchErrors; got != 1 {
		t.Errorf("fetch error delta = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(PhaseDuration); n < 2 {
		t.Errorf("PhaseDuration has %d series, want ok and error", n)
	}
}

func TestRecordAugment(t *testing.T) {
	before := testutil.ToFloat64(AugmentTotal.WithLabelValues("rewrite", "error"))
	RecordAugment("rewrite", errors.New("not found"))
	if got := testutil.ToFloat64(AugmentTotal.WithLabelValues("rewrite", "error")) - before; got != 1 {
		t.Errorf("AugmentTotal delta = %v, want 1", got)
	}
}
