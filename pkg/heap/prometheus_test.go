package heap

import (
	"testing"

	"github.com/nspcc-dev/refheap/pkg/heap/native"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	arena := native.NewArena(0)
	s := Initialize(arena)
	defer s.Finalize()

	live := testutil.ToFloat64(liveObjects)
	creates := testutil.ToFloat64(operations.WithLabelValues("CreateLong"))
	failures := testutil.ToFloat64(allocationFailures)

	h := s.CreateLong(1)
	require.Equal(t, live+1, testutil.ToFloat64(liveObjects))
	require.Equal(t, creates+1, testutil.ToFloat64(operations.WithLabelValues("CreateLong")))

	arena.FailNext()
	s.CreateLong(2)
	require.Equal(t, failures+1, testutil.ToFloat64(allocationFailures))

	s.IncRef(h)
	s.DecRef(h)
	require.Equal(t, live+1, testutil.ToFloat64(liveObjects))
	s.DecRef(h)
	require.Equal(t, live, testutil.ToFloat64(liveObjects))

	quiet := Initialize(native.NewArena(0), WithMetrics(false))
	quiet.DecRef(quiet.CreateDict())
	require.Equal(t, live, testutil.ToFloat64(liveObjects))
	quiet.Finalize()
}

func TestMetrics_FinalizeWithLeaks(t *testing.T) {
	live := testutil.ToFloat64(liveObjects)

	s := Initialize(native.NewArena(0))
	s.CreateLong(1)
	s.CreateDict()
	kept := s.CreateLong(2)
	s.IncRef(kept)
	s.DecRef(kept)
	s.DecRef(s.CreateDict())
	require.Equal(t, live+3, testutil.ToFloat64(liveObjects))

	s.Finalize()
	require.Equal(t, live, testutil.ToFloat64(liveObjects))
}
