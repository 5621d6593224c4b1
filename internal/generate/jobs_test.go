package generate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/stockreport/internal/store"
)

func waitStatus(t *testing.T, job *Job, want JobStatus) JobSnapshot {
	t.Helper()
	var snap JobSnapshot
	require.Eventually(t, func() bool {
		snap = job.Snapshot()
		return snap.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestQueueRunsJobs(t *testing.T) {
	st := store.NewMemory()
	w := &scriptedWriter{draft: Draft{Position: "부정", Report: goodReport}}
	q := NewQueue(newTestGenerator(w, st), nil, 1, 4, time.Hour)
	q.Start(context.Background())
	defer q.Stop()

	job, err := q.Submit("5930")
	require.NoError(t, err)
	assert.Equal(t, "005930", job.StockCode)
	assert.Same(t, job, q.Job(job.ID))

	snap := waitStatus(t, job, StatusCompleted)
	assert.Equal(t, "부정", snap.Position)
	assert.Equal(t, "2025-08-14", snap.Date)
	assert.Empty(t, snap.Error)

	r, err := st.LatestReport(context.Background(), "005930")
	require.NoError(t, err)
	require.NotNil(t, r)
}

func TestQueueRecordsFailure(t *testing.T) {
	w := &scriptedWriter{results: []error{errors.New("invalid x-api-key")}}
	q := NewQueue(newTestGenerator(w, store.NewMemory()), nil, 2, 4, time.Hour)
	q.Start(context.Background())
	defer q.Stop()

	job, err := q.Submit("000660")
	require.NoError(t, err)
	snap := waitStatus(t, job, StatusFailed)
	assert.Contains(t, snap.Error, "invalid x-api-key")
}

func TestQueueFull(t *testing.T) {
	q := NewQueue(newTestGenerator(&scriptedWriter{}, store.NewMemory()), nil, 1, 1, time.Hour)

	_, err := q.Submit("000001")
	require.NoError(t, err)
	assert.Equal(t, 1, q.Depth())

	job, err := q.Submit("000002")
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, StatusFailed, job.Snapshot().Status)
}

func TestQueueCleanupKeepsPending(t *testing.T) {
	q := NewQueue(newTestGenerator(&scriptedWriter{}, store.NewMemory()), nil, 1, 1, time.Nanosecond)

	pending, err := q.Submit("000001")
	require.NoError(t, err)
	rejected, _ := q.Submit("000002")

	time.Sleep(2 * time.Millisecond)
	q.Cleanup()

	assert.NotNil(t, q.Job(pending.ID))
	assert.Nil(t, q.Job(rejected.ID))
}
