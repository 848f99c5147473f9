package jobs_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"streamvault/internal/jobs"
)

func newTestQueue(t *testing.T) *jobs.Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	return jobs.NewQueue(mr.Addr())
}

func TestDispatchEnrichIsIdempotent(t *testing.T) {
	q := newTestQueue(t)
	defer q.Stop()

	require.NoError(t, q.DispatchEnrich(t.Context(), 42))
	// A second dispatch for the same media item must not error — EnqueueUnique
	// treats the still-pending task as already scheduled.
	require.NoError(t, q.DispatchEnrich(t.Context(), 42))
}

func TestEnqueueUniqueRejectsBadPayload(t *testing.T) {
	q := newTestQueue(t)
	defer q.Stop()

	_, err := q.EnqueueUnique("whatever", make(chan int), "bad-payload")
	require.Error(t, err)
}
