package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deployConfig struct {
	Replicas int
	Image    string
}

func TestPutBorrowRoundTrip(t *testing.T) {
	s := New()
	key := KeyOf[deployConfig]("web")

	Put(s, key, deployConfig{Replicas: 3, Image: "web:v1"})

	guard, ok := Borrow(s, key)
	require.True(t, ok)
	defer guard.Release()

	assert.Equal(t, 3, guard.Value().Replicas)
	assert.Equal(t, "web:v1", guard.Value().Image)
}

func TestBorrowAbsentResourceFails(t *testing.T) {
	s := New()

	_, ok := Borrow(s, KeyOf[int]("missing"))
	assert.False(t, ok)
	_, ok = BorrowMut(s, KeyOf[int]("missing"))
	assert.False(t, ok)
	_, ok = Take(s, KeyOf[int]("missing"))
	assert.False(t, ok)
}

func TestSharedBorrowsCoexist(t *testing.T) {
	s := New()
	key := Root[int]()
	Put(s, key, 7)

	g1, ok := Borrow(s, key)
	require.True(t, ok)
	g2, ok := Borrow(s, key)
	require.True(t, ok)

	// A writer fails fast while readers hold the slot.
	_, ok = BorrowMut(s, key)
	assert.False(t, ok)
	_, ok = Take(s, key)
	assert.False(t, ok)

	g1.Release()
	g2.Release()

	w, ok := BorrowMut(s, key)
	require.True(t, ok)
	*w.Value() = 8
	w.Release()

	v, ok := Take(s, key)
	require.True(t, ok)
	assert.Equal(t, 8, v)
}

func TestExclusiveBorrowBlocksAll(t *testing.T) {
	s := New()
	key := Root[string]()
	Put(s, key, "held")

	w, ok := BorrowMut(s, key)
	require.True(t, ok)

	_, ok = Borrow(s, key)
	assert.False(t, ok)
	_, ok = BorrowMut(s, key)
	assert.False(t, ok)
	_, ok = Take(s, key)
	assert.False(t, ok)

	w.Release()

	g, ok := Borrow(s, key)
	require.True(t, ok)
	g.Release()
}

func TestTakeRemovesResource(t *testing.T) {
	s := New()
	key := KeyOf[int]("once")
	Put(s, key, 42)

	v, ok := Take(s, key)
	require.True(t, ok)
	assert.Equal(t, 42, v)

	assert.False(t, Contains(s, key))
	_, ok = Take(s, key)
	assert.False(t, ok)
}

func TestDeleteRespectsBorrows(t *testing.T) {
	s := New()
	key := KeyOf[deployConfig]("web")
	Put(s, key, deployConfig{Replicas: 3})

	guard, ok := Borrow(s, key)
	require.True(t, ok)
	assert.False(t, Delete(s, key))
	guard.Release()

	assert.True(t, Delete(s, key))
	assert.False(t, Contains(s, key))
	assert.False(t, Delete(s, key))
}

func TestPutReplacesWhileBorrowed(t *testing.T) {
	s := New()
	key := Root[int]()
	Put(s, key, 1)

	guard, ok := Borrow(s, key)
	require.True(t, ok)

	// Put installs a fresh slot, so it neither blocks nor disturbs the
	// held guard.
	Put(s, key, 2)
	assert.Equal(t, 1, *guard.Value())
	guard.Release()

	fresh, ok := Borrow(s, key)
	require.True(t, ok)
	assert.Equal(t, 2, *fresh.Value())
	fresh.Release()
}

func TestMaybePutKeepsResident(t *testing.T) {
	s := New()
	key := KeyOf[string]("greeting")

	first := MaybePut(s, key, "hello")
	assert.Equal(t, "hello", first)

	second := MaybePut(s, key, "ignored")
	assert.Equal(t, "hello", second)
}

func TestTypedSlotsAreDisjoint(t *testing.T) {
	s := New()

	Put(s, Root[int](), 9)
	Put(s, Root[string](), "nine")
	Put(s, KeyOf[int]("k"), 1)
	Put(s, KeyOf[string]("k"), "one")

	gi, ok := Borrow(s, KeyOf[int]("k"))
	require.True(t, ok)
	assert.Equal(t, 1, *gi.Value())
	gi.Release()

	gs, ok := Borrow(s, KeyOf[string]("k"))
	require.True(t, ok)
	assert.Equal(t, "one", *gs.Value())
	gs.Release()

	assert.Equal(t, 4, s.Len())
}

func TestGuardReleaseIsIdempotent(t *testing.T) {
	s := New()
	key := Root[int]()
	Put(s, key, 5)

	g, ok := Borrow(s, key)
	require.True(t, ok)
	g.Release()
	g.Release()

	w, ok := BorrowMut(s, key)
	require.True(t, ok)
	w.Release()
	w.Release()

	_, ok = Borrow(s, key)
	assert.True(t, ok)
}

func TestNamespaceIsCreatedOnFirstAccess(t *testing.T) {
	s := New(WithName("root"))

	jobs := s.Namespace("jobs")
	require.NotNil(t, jobs)
	assert.Equal(t, "root/jobs", jobs.Name())

	// Subsequent access returns the same child.
	assert.Same(t, jobs, s.Namespace("jobs"))
	assert.NotSame(t, jobs, s.Namespace("cron"))

	// Namespaces keep their own resources.
	Put(jobs, KeyOf[int]("pending"), 4)
	assert.True(t, Contains(jobs, KeyOf[int]("pending")))
	assert.False(t, Contains(s, KeyOf[int]("pending")))

	nested := jobs.Namespace("retries")
	assert.Equal(t, "root/jobs/retries", nested.Name())
}

func TestDrainRunsMutationsBeforeObservations(t *testing.T) {
	s := New()
	key := Root[int]()
	Put(s, key, 0)

	var observed []int

	s.LazyDispatch(func(st *Store) {
		g, ok := Borrow(st, key)
		if ok {
			observed = append(observed, *g.Value())
			g.Release()
		}
	})
	s.LazyDispatchMut(func(st *Store) {
		Put(st, key, 10)
	})

	s.DrainDispatchQueues()

	// The observation was queued first but still sees the mutation.
	assert.Equal(t, []int{10}, observed)
}

func TestDrainDefersMutationsQueuedDuringMutations(t *testing.T) {
	s := New()
	key := Root[int]()
	Put(s, key, 0)

	var sameCycle []int

	s.LazyDispatchMut(func(st *Store) {
		Put(st, key, 1)

		// Mutations queued while mutating run next cycle.
		st.LazyDispatchMut(func(st *Store) {
			Put(st, key, 2)
		})

		// Observations queued while mutating run this cycle.
		st.LazyDispatch(func(st *Store) {
			g, ok := Borrow(st, key)
			if ok {
				sameCycle = append(sameCycle, *g.Value())
				g.Release()
			}
		})
	})

	s.DrainDispatchQueues()
	assert.Equal(t, []int{1}, sameCycle)

	s.DrainDispatchQueues()
	g, ok := Borrow(s, key)
	require.True(t, ok)
	assert.Equal(t, 2, *g.Value())
	g.Release()
}

func TestConcurrentPutAndBorrow(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := KeyOf[int]("shared").Branch(string(rune('a' + i%4)))
			for j := 0; j < 100; j++ {
				Put(s, key, j)
				if g, ok := Borrow(s, key); ok {
					_ = *g.Value()
					g.Release()
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, s.Len())
}
