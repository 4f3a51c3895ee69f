package ecs

import "testing"

func TestEntityRegistry(t *testing.T) {
	t.Run("TC001: create issues monotonic ids from 1", func(t *testing.T) {
		r := NewEntityRegistry()
		e1 := r.Create()
		e2 := r.Create()
		e3 := r.Create()
		if e1 != 1 || e2 != 2 || e3 != 3 {
			t.Errorf("expected ids 1,2,3; got %d,%d,%d", e1, e2, e3)
		}
	})

	t.Run("TC002: destroyed ids recycle in LIFO order", func(t *testing.T) {
		r := NewEntityRegistry()
		e1 := r.Create()
		e2 := r.Create()
		e3 := r.Create()

		r.Destroy(e1)
		r.Destroy(e2)
		r.Destroy(e3)

		got := []EntityID{r.Create(), r.Create(), r.Create()}
		want := []EntityID{e3, e2, e1}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("recycle[%d]: got %d, want %d", i, got[i], want[i])
			}
		}
	})

	t.Run("TC003: destroy is idempotent on a non-live id", func(t *testing.T) {
		r := NewEntityRegistry()
		e := r.Create()
		r.Destroy(e)
		r.Destroy(e) // must not panic, must not double-recycle

		first := r.Create()
		second := r.Create()
		if first != e {
			t.Errorf("expected recycled id %d, got %d", e, first)
		}
		if second == e {
			t.Errorf("id %d was recycled twice", e)
		}
	})

	t.Run("TC004: destroy on a never-created id is a no-op", func(t *testing.T) {
		r := NewEntityRegistry()
		r.Destroy(EntityID(999))
		if r.Count() != 0 {
			t.Errorf("expected count 0, got %d", r.Count())
		}
	})

	t.Run("TC005: isAlive reflects outstanding creations", func(t *testing.T) {
		r := NewEntityRegistry()
		e := r.Create()
		if !r.IsAlive(e) {
			t.Error("expected entity to be alive immediately after creation")
		}
		r.Destroy(e)
		if r.IsAlive(e) {
			t.Error("expected entity to be dead after destroy")
		}
	})

	t.Run("TC006: count equals size of liveSet", func(t *testing.T) {
		r := NewEntityRegistry()
		r.Create()
		r.Create()
		e3 := r.Create()
		r.Destroy(e3)

		if r.Count() != len(r.LiveSet()) {
			t.Errorf("count()=%d, len(liveSet())=%d", r.Count(), len(r.LiveSet()))
		}
		if r.Count() != 2 {
			t.Errorf("expected count 2, got %d", r.Count())
		}
	})

	t.Run("TC007: liveSet returns an independent copy", func(t *testing.T) {
		r := NewEntityRegistry()
		e := r.Create()

		set := r.LiveSet()
		set[0] = EntityID(12345)

		if !r.IsAlive(e) {
			t.Error("mutating the returned slice must not affect the registry")
		}
	})

	t.Run("TC008: scenario - LIFO recycling per spec seed scenario 1", func(t *testing.T) {
		r := NewEntityRegistry()
		e1 := r.Create()
		e2 := r.Create()
		e3 := r.Create()
		if e1 != 1 || e2 != 2 || e3 != 3 {
			t.Fatalf("setup: expected ids 1,2,3; got %d,%d,%d", e1, e2, e3)
		}

		r.Destroy(e1)
		r.Destroy(e2)
		r.Destroy(e3)

		got := []EntityID{r.Create(), r.Create(), r.Create()}
		want := []EntityID{3, 2, 1}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("position %d: got %d, want %d", i, got[i], want[i])
			}
		}
	})
}
