package ecs

// Query is a point-in-time snapshot of the entities matching a component
// signature at the moment it was built. It does not observe later
// structural changes: an entity removed from the backing ComponentStore
// after the snapshot was taken is silently skipped by GetComponents and
// ForEach rather than causing an error, and Count always reflects the
// original snapshot size regardless of subsequent removals.
type Query struct {
	store    *ComponentStore
	required []ComponentType
	entities []EntityID
}

// newQuery builds a snapshot over entities for the given required component
// types, reading from store. It is constructed by World.Query /
// World.QueryMultiple, never directly.
func newQuery(store *ComponentStore, required []ComponentType, entities []EntityID) *Query {
	snapshot := make([]EntityID, len(entities))
	copy(snapshot, entities)
	return &Query{store: store, required: required, entities: snapshot}
}

// GetEntities returns the snapshot's entity ids, in the order captured.
func (q *Query) GetEntities() []EntityID {
	out := make([]EntityID, len(q.entities))
	copy(out, q.entities)
	return out
}

// GetComponents returns, for each snapshot entity still holding every
// required component, the entity id alongside its component values in
// required-type order. Entities that no longer qualify are skipped.
func (q *Query) GetComponents() []QueryRow {
	rows := make([]QueryRow, 0, len(q.entities))
	for _, e := range q.entities {
		values, ok := q.componentsFor(e)
		if !ok {
			continue
		}
		rows = append(rows, QueryRow{Entity: e, Components: values})
	}
	return rows
}

func (q *Query) componentsFor(e EntityID) ([]interface{}, bool) {
	values := make([]interface{}, 0, len(q.required))
	for _, t := range q.required {
		v, ok := q.store.Get(t, e)
		if !ok {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

// QueryRow is one entity's component values as returned by GetComponents,
// in the same order as the Query's required component types.
type QueryRow struct {
	Entity     EntityID
	Components []interface{}
}

// ForEach invokes fn once per snapshot entity that still holds every
// required component, in snapshot order, passing the entity and its
// component values. Components are fetched just before each callback, so
// an entity that loses a required component earlier in the same iteration
// is skipped.
func (q *Query) ForEach(fn func(entity EntityID, components []interface{})) {
	for _, e := range q.entities {
		values, ok := q.componentsFor(e)
		if !ok {
			continue
		}
		fn(e, values)
	}
}

// Filter returns a new Query over the subset of this snapshot's entities
// for which pred returns true. The required component types carry over
// unchanged; the parent snapshot is left untouched.
func (q *Query) Filter(pred func(entity EntityID) bool) *Query {
	filtered := make([]EntityID, 0, len(q.entities))
	for _, e := range q.entities {
		if pred(e) {
			filtered = append(filtered, e)
		}
	}
	return &Query{store: q.store, required: q.required, entities: filtered}
}

// Count returns the number of entities in the original snapshot, regardless
// of whether any have since lost a required component.
func (q *Query) Count() int {
	return len(q.entities)
}

// IsEmpty reports whether the original snapshot held zero entities.
func (q *Query) IsEmpty() bool {
	return len(q.entities) == 0
}
