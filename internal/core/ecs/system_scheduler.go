package ecs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"ecscore/internal/core/ecs/eclog"
	"ecscore/internal/core/ecs/ecsmetrics"
)

// System is the contract a caller registers with a SystemScheduler. Name must
// be unique across a scheduler. Dependencies, if any, must themselves be
// registered systems; Update runs once per tick in dependency/priority order.
// Initialize and Shutdown are optional lifecycle hooks invoked once each.
type System interface {
	Name() string
	Priority() Priority
	Dependencies() []string
	Update(world *World, deltaTime float64) error
}

// Initializer is an optional extension a System may implement to receive a
// call before its first Update.
type Initializer interface {
	Initialize(world *World) error
}

// Shutdowner is an optional extension a System may implement to receive a
// call when the scheduler itself is shut down.
type Shutdowner interface {
	Shutdown(world *World) error
}

type registeredSystem struct {
	system      System
	initialized bool
}

// SystemScheduler owns a set of named Systems and runs them in an order
// derived from their declared dependencies: systems with no dependencies
// run at level 0; a system's level is one more than the maximum level of
// its dependencies. Within a level, systems run in ascending Priority order,
// ties broken by name for determinism. Levels concatenate ascending.
type SystemScheduler struct {
	mutex   sync.RWMutex
	systems map[string]*registeredSystem
	order   []string
	log     *eclog.Logger
	metrics *ecsmetrics.Metrics
}

// NewSystemScheduler creates an empty scheduler. log and metrics may be nil.
func NewSystemScheduler(log *eclog.Logger, metrics *ecsmetrics.Metrics) *SystemScheduler {
	return &SystemScheduler{
		systems: make(map[string]*registeredSystem),
		log:     log,
		metrics: metrics,
	}
}

// Add registers system. It fails hard with DuplicateSystem if the name is
// already taken, MissingDependency if a declared dependency is not
// registered, or CircularDependency if adding system would close a cycle.
// A successful Add recomputes the execution order.
func (s *SystemScheduler) Add(system System) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	name := system.Name()
	if _, exists := s.systems[name]; exists {
		return NewDuplicateSystemError(name)
	}
	for _, dep := range system.Dependencies() {
		if _, exists := s.systems[dep]; !exists {
			return NewMissingDependencyError(name, dep)
		}
	}

	s.systems[name] = &registeredSystem{system: system}

	if path := s.findCycle(); path != nil {
		meta := s.metaFor(path)
		delete(s.systems, name)
		if s.log != nil {
			s.log.CircularDependency(path)
		}
		return NewCircularDependencyError(path, meta)
	}

	s.recomputeOrder()
	return nil
}

// Remove unregisters the named system. It reports false if no such system
// was registered. Removing a system can never create a cycle. Systems that
// declared the removed system as a dependency stay registered: declared
// dependencies are validated only at Add time.
func (s *SystemScheduler) Remove(name string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.systems[name]; !exists {
		return false
	}
	delete(s.systems, name)
	s.recomputeOrder()
	return true
}

// Get returns the named system and whether it is registered.
func (s *SystemScheduler) Get(name string) (System, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	rs, exists := s.systems[name]
	if !exists {
		return nil, false
	}
	return rs.system, true
}

// All returns every registered system in execution order.
func (s *SystemScheduler) All() []System {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]System, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.systems[name].system)
	}
	return out
}

// ExecutionOrder returns the system names in the order Update would run
// them: dependency level ascending, then Priority ascending within a level.
func (s *SystemScheduler) ExecutionOrder() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Update runs every system's Update method once, in execution order, passing
// deltaTime through unchanged. A system is Initialized on its first Update if
// it implements Initializer and has not yet been initialized. Each system's
// error is caught, logged as a SystemExecutionFailure, and counted; it never
// aborts the tick or the remaining systems.
func (s *SystemScheduler) Update(world *World, deltaTime float64) {
	for _, rs := range s.snapshot() {
		s.runOne(rs, world, deltaTime)
	}
}

func (s *SystemScheduler) runOne(rs *registeredSystem, world *World, deltaTime float64) {
	name := rs.system.Name()

	if !rs.initialized {
		rs.initialized = true
		if initializer, ok := rs.system.(Initializer); ok {
			if err := guard(func() error { return initializer.Initialize(world) }); err != nil {
				s.reportFailure(name, "initialize", err)
				return
			}
		}
	}

	start := time.Now()
	err := guard(func() error { return rs.system.Update(world, deltaTime) })
	if s.metrics != nil {
		s.metrics.SystemDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.reportFailure(name, "update", err)
	}
}

// guard invokes fn with panic recovery, converting a panic into an error so
// a single misbehaving system never takes the rest of the tick down with it.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (s *SystemScheduler) reportFailure(system, phase string, cause error) {
	if s.log != nil {
		s.log.SystemExecutionFailure(system, phase, cause)
	}
	if s.metrics != nil {
		s.metrics.SystemErrors.WithLabelValues(system).Inc()
	}
	_ = NewSystemExecutionFailureError(system, phase, cause)
}

// InitializeAll eagerly initializes every registered system that implements
// Initializer and has not yet been initialized (normally Update does this
// lazily on first run; InitializeAll lets a caller front-load it). Failures
// are isolated exactly as in Update.
func (s *SystemScheduler) InitializeAll(world *World) {
	for _, rs := range s.snapshot() {
		if rs.initialized {
			continue
		}
		rs.initialized = true
		if initializer, ok := rs.system.(Initializer); ok {
			if err := guard(func() error { return initializer.Initialize(world) }); err != nil {
				s.reportFailure(rs.system.Name(), "initialize", err)
			}
		}
	}
}

// ShutdownAll invokes Shutdown, in reverse execution order, on every
// registered system that implements Shutdowner. Failures are isolated
// exactly as in Update; ShutdownAll always visits every system regardless
// of earlier failures.
func (s *SystemScheduler) ShutdownAll(world *World) {
	systems := s.snapshot()
	for i := len(systems) - 1; i >= 0; i-- {
		rs := systems[i]
		if shutdowner, ok := rs.system.(Shutdowner); ok {
			if err := guard(func() error { return shutdowner.Shutdown(world) }); err != nil {
				s.reportFailure(rs.system.Name(), "shutdown", err)
			}
		}
	}
}

func (s *SystemScheduler) snapshot() []*registeredSystem {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]*registeredSystem, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.systems[name])
	}
	return out
}

// recomputeOrder rebuilds s.order from s.systems. Caller must hold s.mutex.
func (s *SystemScheduler) recomputeOrder() {
	levels := make(map[string]int, len(s.systems))
	for name := range s.systems {
		levels[name] = s.levelOf(name, levels, nil)
	}

	names := make([]string, 0, len(s.systems))
	for name := range s.systems {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		li, lj := levels[names[i]], levels[names[j]]
		if li != lj {
			return li < lj
		}
		pi := s.systems[names[i]].system.Priority()
		pj := s.systems[names[j]].system.Priority()
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})

	s.order = names
}

// levelOf computes a system's dependency level: 0 if it has no dependencies,
// otherwise one more than the maximum level of its dependencies. visiting
// guards against cycles that might slip through findCycle (it should not,
// since Add refuses to leave one in place); it returns 0 defensively rather
// than recursing forever. Caller must hold s.mutex.
func (s *SystemScheduler) levelOf(name string, memo map[string]int, visiting map[string]bool) int {
	if lvl, ok := memo[name]; ok && lvl >= 0 {
		return lvl
	}
	if visiting == nil {
		visiting = make(map[string]bool)
	}
	if visiting[name] {
		return 0
	}
	visiting[name] = true

	rs, ok := s.systems[name]
	if !ok {
		return 0
	}
	deps := rs.system.Dependencies()
	if len(deps) == 0 {
		memo[name] = 0
		return 0
	}
	max := 0
	for _, dep := range deps {
		if lvl := s.levelOf(dep, memo, visiting); lvl+1 > max {
			max = lvl + 1
		}
	}
	memo[name] = max
	return max
}

// findCycle runs a DFS over the current dependency graph and returns the
// first cycle found as a path of system names (e.g. []string{"A", "B", "A"}),
// or nil if the graph is acyclic. Caller must hold s.mutex.
func (s *SystemScheduler) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(s.systems))
	var path []string

	var visit func(name string) []string
	visit = func(name string) []string {
		color[name] = gray
		path = append(path, name)

		rs, ok := s.systems[name]
		if ok {
			for _, dep := range rs.system.Dependencies() {
				switch color[dep] {
				case white:
					if cycle := visit(dep); cycle != nil {
						return cycle
					}
				case gray:
					cycleStart := 0
					for i, n := range path {
						if n == dep {
							cycleStart = i
							break
						}
					}
					cycle := append([]string(nil), path[cycleStart:]...)
					cycle = append(cycle, dep)
					return cycle
				}
			}
		}

		path = path[:len(path)-1]
		color[name] = black
		return nil
	}

	names := make([]string, 0, len(s.systems))
	for name := range s.systems {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if color[name] == white {
			if cycle := visit(name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// metaFor builds the per-system priority/dependency metadata attached to a
// CircularDependencyError, for every system named in path. Caller must hold s.mutex.
func (s *SystemScheduler) metaFor(path []string) map[string]SystemMeta {
	meta := make(map[string]SystemMeta, len(path))
	for _, name := range path {
		rs, ok := s.systems[name]
		if !ok {
			continue
		}
		meta[name] = SystemMeta{
			Priority:     rs.system.Priority(),
			Dependencies: rs.system.Dependencies(),
		}
	}
	return meta
}
