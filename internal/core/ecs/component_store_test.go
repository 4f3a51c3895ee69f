package ecs

import "testing"

func TestComponentStore(t *testing.T) {
	t.Run("TC001: add then get returns the stored value", func(t *testing.T) {
		s := NewComponentStore()
		s.Add("position", 1, "v1")
		got, ok := s.Get("position", 1)
		if !ok || got != "v1" {
			t.Errorf("got (%v, %v), want (v1, true)", got, ok)
		}
	})

	t.Run("TC002: add replaces an existing value", func(t *testing.T) {
		s := NewComponentStore()
		s.Add("position", 1, "v1")
		s.Add("position", 1, "v2")
		got, _ := s.Get("position", 1)
		if got != "v2" {
			t.Errorf("got %v, want v2", got)
		}
		if len(s.Entities("position")) != 1 {
			t.Errorf("replace must not grow the entity set")
		}
	})

	t.Run("TC003: remove reports presence and removes the value", func(t *testing.T) {
		s := NewComponentStore()
		s.Add("position", 1, "v1")

		if ok := s.Remove("position", 1); !ok {
			t.Error("expected Remove to report true for a present value")
		}
		if _, ok := s.Get("position", 1); ok {
			t.Error("value should be gone after Remove")
		}
		if ok := s.Remove("position", 1); ok {
			t.Error("a second Remove must report false without side effect")
		}
	})

	t.Run("TC004: has reflects presence", func(t *testing.T) {
		s := NewComponentStore()
		if s.Has("position", 1) {
			t.Error("expected Has false before Add")
		}
		s.Add("position", 1, "v1")
		if !s.Has("position", 1) {
			t.Error("expected Has true after Add")
		}
	})

	t.Run("TC005: entities returns an independent copy", func(t *testing.T) {
		s := NewComponentStore()
		s.Add("position", 1, "v1")
		s.Add("position", 2, "v2")

		got := s.Entities("position")
		got[0] = 999

		still := s.Entities("position")
		found1, found2 := false, false
		for _, e := range still {
			if e == 1 {
				found1 = true
			}
			if e == 2 {
				found2 = true
			}
		}
		if !found1 || !found2 {
			t.Error("mutating the returned slice must not affect the store")
		}
	})

	t.Run("TC006: entities of a never-added type is empty", func(t *testing.T) {
		s := NewComponentStore()
		if got := s.Entities("nonexistent"); len(got) != 0 {
			t.Errorf("expected empty slice, got %v", got)
		}
	})

	t.Run("TC007: removeEntity purges across all columns", func(t *testing.T) {
		s := NewComponentStore()
		s.Add("position", 1, "p")
		s.Add("velocity", 1, "v")
		s.Add("position", 2, "p2")

		removed := s.RemoveEntity(1)
		if len(removed) != 2 {
			t.Errorf("expected 2 removed types, got %d", len(removed))
		}
		if s.Has("position", 1) || s.Has("velocity", 1) {
			t.Error("entity 1 should own no components after RemoveEntity")
		}
		if !s.Has("position", 2) {
			t.Error("entity 2 must be unaffected")
		}
	})
}
