// Package eclog provides structured logging for the ECS core, wrapping
// logrus the way the rest of this project's lineage wraps it: a typed
// Logger embeds *logrus.Logger and tags every entry with a component and an
// instance trace id so several concurrently-embedded Worlds stay
// distinguishable in shared log output.
package eclog

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with ECS-specific field conventions.
type Logger struct {
	*logrus.Logger
	traceID string
}

var (
	defaultMutex sync.Mutex
	defaultInst  *Logger
)

// Default returns a process-wide Logger, created lazily on first use with
// info/json defaults. Embedding applications that never construct a World
// via NewWorld (e.g. unit-testing a package in isolation) still get a usable
// sink for ad-hoc diagnostic logging through this singleton.
func Default() *Logger {
	defaultMutex.Lock()
	defer defaultMutex.Unlock()
	if defaultInst == nil {
		defaultInst = New("info", "json")
	}
	return defaultInst
}

// New creates a Logger configured with the given level ("debug", "info", ...)
// and format ("json" or "text"). Unparseable levels fall back to Info.
func New(level, format string) *Logger {
	logger := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, traceID: uuid.New().String()}
}

// Noop returns a Logger with output discarded, for use when EnableTracing or
// EnableMetrics-style logging is not wanted (tests, embedders that install
// their own sink via SetOutput after construction).
func Noop() *Logger {
	l := New("panic", "json")
	l.SetOutput(io.Discard)
	return l
}

// TraceID returns the instance trace id stamped on every entry from this logger.
func (l *Logger) TraceID() string {
	return l.traceID
}

// WithComponent returns an entry tagged with the given core component name
// ("world", "scheduler", "eventbus", ...) and this logger's trace id.
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"component": component,
		"trace_id":  l.traceID,
	})
}

// WithSystem returns an entry additionally tagged with a system name.
func (l *Logger) WithSystem(component, system string) *logrus.Entry {
	return l.WithComponent(component).WithField("system", system)
}

// WithEntity returns an entry additionally tagged with an entity id.
func (l *Logger) WithEntity(component string, entity uint64) *logrus.Entry {
	return l.WithComponent(component).WithField("entity", entity)
}

// WithTick returns an entry additionally tagged with a tick sequence number,
// for log lines emitted from within World.Tick.
func (l *Logger) WithTick(component string, tick uint64) *logrus.Entry {
	return l.WithComponent(component).WithField("tick", tick)
}

// SystemExecutionFailure logs a system lifecycle failure at the scheduler
// boundary, matching the error kind of the same name.
func (l *Logger) SystemExecutionFailure(system, phase string, err error) {
	l.WithSystem("scheduler", system).WithError(err).Errorf("system execution failed during %s", phase)
}

// ListenerFailure logs a subscriber failure at the event bus boundary,
// matching the error kind of the same name.
func (l *Logger) ListenerFailure(eventType string, err error) {
	l.WithComponent("eventbus").WithField("event_type", eventType).WithError(err).Error("listener failed")
}

// CircularDependency logs a cycle detected at add/remove time.
func (l *Logger) CircularDependency(path []string) {
	l.WithComponent("scheduler").WithField("cycle", fmt.Sprint(path)).Error("circular dependency detected")
}
