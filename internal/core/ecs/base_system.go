package ecs

// BaseSystem is an embeddable convenience type that gives a concrete System
// its Name/Priority/Dependencies bookkeeping and a handful of query
// shortcuts, so most systems only need to write Update (and, optionally,
// Initialize/Shutdown).
type BaseSystem struct {
	name     string
	priority Priority
	deps     []string
}

// NewBaseSystem creates a BaseSystem with the given identity. deps may be
// nil for a system with no dependencies.
func NewBaseSystem(name string, priority Priority, deps []string) BaseSystem {
	return BaseSystem{name: name, priority: priority, deps: deps}
}

// Name returns the system's registered name.
func (b *BaseSystem) Name() string { return b.name }

// Priority returns the system's within-level ordering value.
func (b *BaseSystem) Priority() Priority { return b.priority }

// Dependencies returns the names of the systems this one must run after.
func (b *BaseSystem) Dependencies() []string { return b.deps }

// Query returns a snapshot of every entity in world currently holding
// componentType. A thin pass-through kept on BaseSystem so embedding
// systems can write b.Query(...) instead of world.Query(...).
func (b *BaseSystem) Query(world *World, componentType ComponentType) *Query {
	return world.Query(componentType)
}

// QueryMultiple returns a snapshot of every entity in world currently
// holding every type in required.
func (b *BaseSystem) QueryMultiple(world *World, required []ComponentType) *Query {
	return world.QueryMultiple(required)
}

// ForEachWith runs fn over every entity in world holding every type in
// required, skipping entities that lose a required component before the
// callback runs. A convenience wrapper around QueryMultiple(...).ForEach.
func (b *BaseSystem) ForEachWith(world *World, required []ComponentType, fn func(entity EntityID, components []interface{})) {
	world.QueryMultiple(required).ForEach(fn)
}

// Emit enqueues event onto world's bus, tagging its Source with this
// system's name if the caller left Source unset.
func (b *BaseSystem) Emit(world *World, event Event) {
	if event.Source == "" {
		event.Source = "system:" + b.name
	}
	world.EmitEvent(event)
}
