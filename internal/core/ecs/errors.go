package ecs

import (
	"fmt"
	"strings"
	"time"
)

// ==============================================
// Error Kind and Base Type
// ==============================================

// Kind identifies the class of an Error, independent of its message text.
type Kind string

const (
	// KindUnknownEntity marks an operation that referenced a non-live entity.
	KindUnknownEntity Kind = "UNKNOWN_ENTITY"
	// KindDuplicateSystem marks registration of a system name already in use.
	KindDuplicateSystem Kind = "DUPLICATE_SYSTEM"
	// KindMissingDependency marks a system declaring a dependency that is not registered.
	KindMissingDependency Kind = "MISSING_DEPENDENCY"
	// KindCircularDependency marks a cycle among system dependencies.
	KindCircularDependency Kind = "CIRCULAR_DEPENDENCY"
	// KindSystemExecutionFailure marks a system's update/initialize/shutdown returning an error.
	KindSystemExecutionFailure Kind = "SYSTEM_EXECUTION_FAILURE"
	// KindListenerFailure marks an event bus subscriber returning an error during drain.
	KindListenerFailure Kind = "LISTENER_FAILURE"
)

// Error is the single error type surfaced by this package. Callers distinguish
// failure modes via Kind(), not via Go type assertions on concrete structs.
type Error struct {
	ErrKind   Kind      `json:"kind"`
	Message   string    `json:"message"`
	Entity    EntityID  `json:"entity,omitempty"`
	System    string    `json:"system,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
	cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Entity != 0 && e.System != "":
		return fmt.Sprintf("[%s] %s (entity: %d, system: %s)", e.ErrKind, e.Message, e.Entity, e.System)
	case e.Entity != 0:
		return fmt.Sprintf("[%s] %s (entity: %d)", e.ErrKind, e.Message, e.Entity)
	case e.System != "":
		return fmt.Sprintf("[%s] %s (system: %s)", e.ErrKind, e.Message, e.System)
	default:
		return fmt.Sprintf("[%s] %s", e.ErrKind, e.Message)
	}
}

// Unwrap exposes a wrapped cause, if any, for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Kind returns the error's classification.
func (e *Error) Kind() Kind {
	return e.ErrKind
}

// WithEntity attaches entity context to the error and returns it for chaining.
func (e *Error) WithEntity(id EntityID) *Error {
	e.Entity = id
	return e
}

// WithSystem attaches system context to the error and returns it for chaining.
func (e *Error) WithSystem(name string) *Error {
	e.System = name
	return e
}

// WithDetails attaches free-form diagnostic text and returns it for chaining.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

func newError(kind Kind, message string) *Error {
	return &Error{ErrKind: kind, Message: message, Timestamp: time.Now()}
}

// WrapError wraps an existing error with a Kind and message, preserving cause for errors.Unwrap.
func WrapError(kind Kind, message string, cause error) *Error {
	e := newError(kind, fmt.Sprintf("%s: %v", message, cause))
	e.cause = cause
	return e
}

// ==============================================
// Constructors for the six spec error kinds
// ==============================================

// NewUnknownEntityError reports that id does not reference a live entity.
func NewUnknownEntityError(id EntityID) *Error {
	return newError(KindUnknownEntity, fmt.Sprintf("entity %d is not alive", id)).WithEntity(id)
}

// NewDuplicateSystemError reports that name is already registered with the scheduler.
func NewDuplicateSystemError(name string) *Error {
	return newError(KindDuplicateSystem, fmt.Sprintf("system %q is already registered", name)).WithSystem(name)
}

// NewMissingDependencyError reports that dependency is not a registered system.
func NewMissingDependencyError(system, dependency string) *Error {
	return newError(KindMissingDependency,
		fmt.Sprintf("system %q declares dependency %q, which is not registered", system, dependency)).
		WithSystem(system)
}

// NewCircularDependencyError reports a dependency cycle. path lists system names
// in cycle order (e.g. []string{"A", "B", "A"}); meta carries, for every system
// implicated in the cycle, its declared priority and dependencies so the caller
// can diagnose the cycle without a second lookup.
func NewCircularDependencyError(path []string, meta map[string]SystemMeta) *Error {
	msg := fmt.Sprintf("circular dependency: %s", strings.Join(path, " -> "))
	if len(meta) > 0 {
		names := make([]string, 0, len(meta))
		for name := range meta {
			names = append(names, name)
		}
		var b strings.Builder
		b.WriteString(msg)
		b.WriteString(" [")
		for i, name := range names {
			if i > 0 {
				b.WriteString(", ")
			}
			m := meta[name]
			fmt.Fprintf(&b, "%s(priority=%d, deps=%v)", name, m.Priority, m.Dependencies)
		}
		b.WriteString("]")
		msg = b.String()
	}
	return newError(KindCircularDependency, msg)
}

// NewSystemExecutionFailureError reports that a system's lifecycle method returned an error.
func NewSystemExecutionFailureError(system string, phase string, cause error) *Error {
	e := WrapError(KindSystemExecutionFailure,
		fmt.Sprintf("system %q failed during %s", system, phase), cause)
	return e.WithSystem(system)
}

// NewListenerFailureError reports that an event bus subscriber returned an error during drain.
func NewListenerFailureError(eventType string, cause error) *Error {
	return WrapError(KindListenerFailure,
		fmt.Sprintf("listener for event type %q failed", eventType), cause)
}

// SystemMeta carries the scheduling metadata attached to a cycle-detection error.
type SystemMeta struct {
	Priority     Priority
	Dependencies []string
}

// ==============================================
// Predicates
// ==============================================

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else {
		return false
	}
	return e.ErrKind == kind
}
