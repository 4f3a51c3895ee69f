package ecs

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"ecscore/internal/core/ecs/eclog"
	"ecscore/internal/core/ecs/ecsmetrics"
)

// World is the facade gluing the registry, component store, archetype
// index, dirty tracker, event bus and system scheduler into one cooperative
// simulation step. All structural mutation goes through World so the
// invariants linking those five pieces together are kept in one place.
type World struct {
	mutex sync.RWMutex

	config    WorldConfig
	registry  *EntityRegistry
	store     *ComponentStore
	archetype *ArchetypeIndex
	dirty     *DirtyTracker
	bus       *EventBus
	scheduler *SystemScheduler
	tickSeq   uint64

	log     *eclog.Logger
	metrics *ecsmetrics.Metrics
}

// NewWorld creates a World with the given configuration, used as given;
// pass DefaultWorldConfig() for the package defaults.
func NewWorld(config WorldConfig) *World {
	var log *eclog.Logger
	if config.EnableTracing {
		log = eclog.New(config.LogLevel, config.LogFormat)
	} else {
		log = eclog.Noop()
	}

	var metrics *ecsmetrics.Metrics
	if config.EnableMetrics {
		metrics = ecsmetrics.New()
	}

	return &World{
		config:    config,
		registry:  NewEntityRegistry(),
		store:     NewComponentStore(),
		archetype: NewArchetypeIndex(),
		dirty:     NewDirtyTracker(),
		bus:       NewEventBus(config.MaxEventCascadeDepth, log, metrics),
		scheduler: NewSystemScheduler(log, metrics),
		log:       log,
		metrics:   metrics,
	}
}

// NewWorldFromFile creates a World configured from a YAML file, unmarshaled
// onto a copy of DefaultWorldConfig so any field the file omits keeps its
// default. The loader lives here, not in a separate package, since
// WorldConfig itself lives in package ecs and a loader package that
// imported it back would form an import cycle.
func NewWorldFromFile(path string) (*World, error) {
	cfg := DefaultWorldConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ecs: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("ecs: parsing %s: %w", path, err)
	}

	return NewWorld(cfg), nil
}

// Config returns the World's configuration.
func (w *World) Config() WorldConfig {
	return w.config
}

// Log returns the World's logger, for embedders that want to share it.
func (w *World) Log() *eclog.Logger {
	return w.log
}

// Lock acquires the World's write lock, holding off every other World
// method (including Tick) until Unlock. The World's own methods acquire
// this same lock and it is not reentrant, so calling them while holding
// it blocks forever.
func (w *World) Lock() { w.mutex.Lock() }

// Unlock releases the World's write lock.
func (w *World) Unlock() { w.mutex.Unlock() }

// RLock acquires the World's read lock.
func (w *World) RLock() { w.mutex.RLock() }

// RUnlock releases the World's read lock.
func (w *World) RUnlock() { w.mutex.RUnlock() }

// ==============================================
// Entity lifecycle
// ==============================================

// CreateEntity allocates a new entity id with no components.
func (w *World) CreateEntity() EntityID {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	id := w.registry.Create()
	if w.metrics != nil {
		w.metrics.EntitiesAlive.Set(float64(w.registry.Count()))
	}
	return id
}

// DestroyEntity removes entity and all of its components. It is a no-op if
// entity is not alive. Removal order is columns, then archetype index, then
// dirty tracker, then the registry itself, so no observer can see a
// half-torn-down entity.
func (w *World) DestroyEntity(entity EntityID) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.destroyEntityLocked(entity)
}

func (w *World) destroyEntityLocked(entity EntityID) {
	if !w.registry.IsAlive(entity) {
		return
	}
	w.store.RemoveEntity(entity)
	w.archetype.Remove(entity)
	w.dirty.ClearEntity(entity)
	w.registry.Destroy(entity)

	if w.metrics != nil {
		w.metrics.EntitiesAlive.Set(float64(w.registry.Count()))
	}
}

// IsAlive reports whether entity is currently alive.
func (w *World) IsAlive(entity EntityID) bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.registry.IsAlive(entity)
}

// EntityCount returns the number of currently live entities.
func (w *World) EntityCount() int {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.registry.Count()
}

// ==============================================
// Component CRUD
// ==============================================

// AddComponent attaches value under componentType to entity, updates the
// entity's archetype signature, and marks it dirty for that type. It fails
// with UnknownEntity if entity is not alive.
func (w *World) AddComponent(entity EntityID, componentType ComponentType, value interface{}) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.registry.IsAlive(entity) {
		return NewUnknownEntityError(entity)
	}
	w.store.Add(componentType, entity, value)
	w.archetype.Set(entity, w.store.TypesOf(entity))
	w.dirty.Mark(entity, componentType)
	return nil
}

// RemoveComponent detaches componentType from entity, updates its archetype
// signature, and marks it dirty for that type. It reports false if entity
// held no such component (including if entity is not alive).
func (w *World) RemoveComponent(entity EntityID, componentType ComponentType) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	removed := w.store.Remove(componentType, entity)
	if removed {
		w.archetype.Set(entity, w.store.TypesOf(entity))
		w.dirty.Mark(entity, componentType)
	}
	return removed
}

// GetComponent returns entity's value for componentType, if any.
func (w *World) GetComponent(entity EntityID, componentType ComponentType) (interface{}, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.store.Get(componentType, entity)
}

// HasComponent reports whether entity currently holds componentType.
func (w *World) HasComponent(entity EntityID, componentType ComponentType) bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.store.Has(componentType, entity)
}

// ComponentTypesOf returns the component types currently attached to entity.
func (w *World) ComponentTypesOf(entity EntityID) []ComponentType {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.store.TypesOf(entity)
}

// SignatureOf returns entity's current archetype signature.
func (w *World) SignatureOf(entity EntityID) (Signature, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.archetype.SignatureOf(entity)
}

// ==============================================
// Queries
// ==============================================

// Query returns a snapshot of every entity currently holding componentType.
func (w *World) Query(componentType ComponentType) *Query {
	return w.QueryMultiple([]ComponentType{componentType})
}

// QueryMultiple returns a snapshot of every entity currently holding every
// type in required.
func (w *World) QueryMultiple(required []ComponentType) *Query {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	matching := w.archetype.EntitiesMatching(required)
	return newQuery(w.store, required, matching)
}

// ==============================================
// Dirty tracking
// ==============================================

// MarkDirty marks entity dirty for componentType without otherwise changing
// its component data. Structural mutations already do this implicitly.
func (w *World) MarkDirty(entity EntityID, componentType ComponentType) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.dirty.Mark(entity, componentType)
}

// DirtyOf returns the entities currently marked dirty for componentType.
func (w *World) DirtyOf(componentType ComponentType) []EntityID {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.dirty.DirtyOf(componentType)
}

// DirtyStats returns the current dirty-tracker statistics.
func (w *World) DirtyStats() Stats {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.dirty.Stats()
}

// ==============================================
// Events
// ==============================================

// EmitEvent enqueues event onto the World's bus for the next drain.
func (w *World) EmitEvent(event Event) {
	w.bus.Emit(event)
}

// Subscribe registers listener for eventType on the World's bus, returning
// an unsubscribe function.
func (w *World) Subscribe(eventType string, listener Listener) func() {
	return w.bus.Subscribe(eventType, listener)
}

// QueueEntityEvent appends an event to entity's EntityEventBuffer component,
// creating the buffer component if entity did not already have one.
func (w *World) QueueEntityEvent(entity EntityID, eventType string, data interface{}) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.registry.IsAlive(entity) {
		return NewUnknownEntityError(entity)
	}

	value, ok := w.store.Get(EntityEventBufferType, entity)
	var buffer *EntityEventBuffer
	if ok {
		buffer = value.(*EntityEventBuffer)
	} else {
		buffer = NewEntityEventBuffer()
		w.store.Add(EntityEventBufferType, entity, buffer)
		w.archetype.Set(entity, w.store.TypesOf(entity))
	}
	buffer.Queue(eventType, data)
	return nil
}

// flushEntityEventBuffers drains every entity's EntityEventBuffer onto the
// bus, tagging each event's Source as "entity:<id>". Caller must hold w.mutex.
func (w *World) flushEntityEventBuffers() {
	for _, e := range w.store.Entities(EntityEventBufferType) {
		value, ok := w.store.Get(EntityEventBufferType, e)
		if !ok {
			continue
		}
		buffer := value.(*EntityEventBuffer)
		if buffer.HasPending() {
			buffer.FlushInto(w.bus, fmt.Sprintf("entity:%d", e))
		}
	}
}

// ==============================================
// Systems
// ==============================================

// AddSystem registers system with the World's scheduler.
func (w *World) AddSystem(system System) error {
	return w.scheduler.Add(system)
}

// RemoveSystem unregisters the named system.
func (w *World) RemoveSystem(name string) bool {
	return w.scheduler.Remove(name)
}

// Scheduler returns the World's SystemScheduler directly, for callers that
// need ExecutionOrder, Get, or All.
func (w *World) Scheduler() *SystemScheduler {
	return w.scheduler
}

// Shutdown runs Shutdown on every registered system.
func (w *World) Shutdown() {
	w.scheduler.ShutdownAll(w)
}

// ==============================================
// Tick
// ==============================================

// Tick runs one simulation step:
//
//  1. flush every entity's pending EntityEventBuffer onto the bus
//  2. drain the bus
//  3. run every system's Update (initializing first-run systems as needed)
//  4. drain the bus again, to process events systems emitted this tick
//  5. clear the dirty tracker
//
// Step 2 exists so entity-buffered events from a previous tick (or from
// code running between ticks) are visible to systems before they update;
// step 4 lets systems react to each other's emissions within the same tick
// without requiring a second Tick call.
func (w *World) Tick(deltaTime float64) {
	start := time.Now()

	w.mutex.Lock()
	w.tickSeq++
	seq := w.tickSeq
	w.flushEntityEventBuffers()
	w.mutex.Unlock()

	if w.log != nil {
		w.log.WithTick("world", seq).Debug("tick started")
	}

	w.bus.Drain()

	w.scheduler.Update(w, deltaTime)

	w.bus.Drain()

	w.mutex.Lock()
	w.dirty.ClearAll()
	w.mutex.Unlock()

	if w.metrics != nil {
		w.metrics.TickDuration.Observe(time.Since(start).Seconds())
	}
}
