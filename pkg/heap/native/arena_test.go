package native

import (
	"testing"

	"github.com/nspcc-dev/refheap/pkg/heap/object"
	"github.com/stretchr/testify/require"
)

func newRunningArena(t *testing.T, capacity int) *Arena {
	a := NewArena(capacity)
	require.NoError(t, a.Init())
	return a
}

func TestArena_Lifecycle(t *testing.T) {
	a := NewArena(0)
	require.ErrorIs(t, a.Finalize(), ErrNotInitialized)
	require.NoError(t, a.Init())
	require.ErrorIs(t, a.Init(), ErrAlreadyInitialized)
	require.NoError(t, a.Finalize())
	require.ErrorIs(t, a.Finalize(), ErrFinalized)
	require.ErrorIs(t, a.Init(), ErrFinalized)
	require.Empty(t, a.Live())
	require.Equal(t, object.Null, a.MakeLong(1))
}

func TestArena_Seeded(t *testing.T) {
	a := newRunningArena(t, 0)

	consts := object.Constants{None: a.None(), True: a.True(), False: a.False(), NotImplemented: a.NotImplemented()}
	seen := make(map[object.Handle]bool)
	for _, h := range consts.All() {
		require.NotEqual(t, object.Null, h)
		require.False(t, seen[h])
		seen[h] = true
		require.Equal(t, 1, a.RefCount(h))
	}
	require.Equal(t, object.NoneT, a.Classify(a.None()))
	require.Equal(t, object.BoolT, a.Classify(a.True()))
	require.Equal(t, object.BoolT, a.Classify(a.False()))
	require.Equal(t, object.NotImplementedT, a.Classify(a.NotImplemented()))

	r, ok := a.Lookup(a.True())
	require.True(t, ok)
	require.True(t, r.Bool)
	r, ok = a.Lookup(a.False())
	require.True(t, ok)
	require.False(t, r.Bool)

	meta, ok := a.TypeObject(object.TypeT)
	require.True(t, ok)
	mr, ok := a.Lookup(meta)
	require.True(t, ok)
	require.Equal(t, meta, mr.TypeHandle)
	require.Equal(t, TypeName, mr.Name)

	boolType, ok := a.TypeObject(object.BoolT)
	require.True(t, ok)
	require.Equal(t, boolType, r.TypeHandle)

	// 6 type objects and 4 constants.
	require.Equal(t, 10, a.Len())
	require.Len(t, a.Live(), 10)
}

func TestArena_RefCounting(t *testing.T) {
	a := newRunningArena(t, 0)

	h := a.MakeLong(33)
	require.NotEqual(t, object.Null, h)
	require.Equal(t, 1, a.RefCount(h))
	require.Equal(t, object.LongT, a.Classify(h))

	a.IncRef(h)
	a.IncRef(h)
	require.Equal(t, 3, a.RefCount(h))
	a.DecRef(h)
	a.DecRef(h)
	require.Equal(t, 1, a.RefCount(h))

	a.DecRef(h)
	_, ok := a.Lookup(h)
	require.False(t, ok)
	require.Panics(t, func() { a.RefCount(h) })
	require.Panics(t, func() { a.DecRef(h) })
	require.Panics(t, func() { a.IncRef(object.Null) })

	st := a.Stats()
	require.Equal(t, uint64(1), st.Allocated)
	require.Equal(t, uint64(1), st.Reclaimed)
	require.Equal(t, uint64(0), st.Failed)
}

func TestArena_Immortal(t *testing.T) {
	a := newRunningArena(t, 0)
	a.IncRef(a.None())
	a.DecRef(a.None())
	require.PanicsWithError(t, ErrImmortal.Error()+": "+a.None().String(), func() { a.DecRef(a.None()) })
}

func TestArena_HandlesNotReused(t *testing.T) {
	a := newRunningArena(t, 0)
	seen := make(map[object.Handle]bool)
	for i := 0; i < 100; i++ {
		h := a.MakeDict()
		require.False(t, seen[h])
		seen[h] = true
		a.DecRef(h)
	}
}

func TestArena_Capacity(t *testing.T) {
	a := newRunningArena(t, 2)
	require.Equal(t, 2, a.Capacity())
	h1 := a.MakeLong(1)
	h2 := a.MakeDict()
	require.NotEqual(t, object.Null, h1)
	require.NotEqual(t, object.Null, h2)
	require.Equal(t, object.Null, a.MakeLong(3))

	a.DecRef(h1)
	h3 := a.MakeLong(3)
	require.NotEqual(t, object.Null, h3)
	require.Equal(t, uint64(1), a.Stats().Failed)
}

func TestArena_Faults(t *testing.T) {
	a := newRunningArena(t, 0)

	a.FailNext()
	require.Equal(t, object.Null, a.MakeDict())
	require.NotEqual(t, object.Null, a.MakeDict())

	a.FailAfter(2)
	require.NotEqual(t, object.Null, a.MakeLong(1))
	require.NotEqual(t, object.Null, a.MakeLong(2))
	require.Equal(t, object.Null, a.MakeLong(3))
	require.Equal(t, object.Null, a.MakeDict())

	a.ClearFaults()
	require.NotEqual(t, object.Null, a.MakeLong(4))
	require.Equal(t, uint64(3), a.Stats().Failed)
}
