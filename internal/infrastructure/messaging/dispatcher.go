// Package messaging implements in-process, versioned domain event dispatch.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/lifedashboard/life-dashboard/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher routes events to the handlers registered for their exact type.
//
// Publish is synchronous: it returns after every compatible handler has run.
// Handlers run in registration order and without any dispatcher lock held, so
// they may register handlers or publish further events.
type Dispatcher struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]HandlerRegistration
	middlewares []Middleware

	audit   *AuditLog
	logger  *slog.Logger
	metrics *DispatcherMetrics
}

// DispatcherConfig contains configuration for the Dispatcher.
type DispatcherConfig struct {
	// EnableEventLog records every published event in the audit log.
	EnableEventLog bool

	// MaxEventLogEntries bounds the audit log; 0 means unbounded.
	MaxEventLogEntries int

	// Metrics receives dispatch counters. A fresh set is created if nil.
	Metrics *DispatcherMetrics

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultDispatcherConfig returns sensible defaults: audit log on, unbounded.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		EnableEventLog: true,
	}
}

// NewDispatcher creates a new event dispatcher with an empty registry and log.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = NewDispatcherMetrics()
	}

	return &Dispatcher{
		handlers: make(map[shared.EventType][]HandlerRegistration),
		audit:    NewAuditLog(config.EnableEventLog, config.MaxEventLogEntries),
		logger:   config.Logger,
		metrics:  config.Metrics,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// RegisterHandler appends a handler for eventType. Names need not be unique.
// A nil handler is logged and ignored.
func (d *Dispatcher) RegisterHandler(eventType shared.EventType, handler Handler, opts ...RegisterOption) {
	if handler == nil {
		d.logger.Warn("ignoring nil handler", "event_type", eventType)
		return
	}

	reg := newRegistration(eventType, handler, opts...)

	d.mu.Lock()
	d.handlers[eventType] = append(d.handlers[eventType], reg)
	d.mu.Unlock()

	d.logger.Debug("registered handler",
		"event_type", eventType,
		"handler", reg.Name,
		"min_version", reg.MinVersion,
		"max_version", reg.MaxVersion,
	)
}

// UnregisterHandler removes the first registration named name for eventType
// and reports whether one was removed.
func (d *Dispatcher) UnregisterHandler(eventType shared.EventType, name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	regs := d.handlers[eventType]
	i := slices.IndexFunc(regs, func(r HandlerRegistration) bool { return r.Name == name })
	if i < 0 {
		return false
	}

	regs = slices.Delete(regs, i, i+1)
	if len(regs) == 0 {
		delete(d.handlers, eventType)
	} else {
		d.handlers[eventType] = regs
	}

	d.logger.Debug("unregistered handler", "event_type", eventType, "handler", name)
	return true
}

// ClearHandlers removes every registration for the given types, or for all
// types when none are given.
func (d *Dispatcher) ClearHandlers(eventTypes ...shared.EventType) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(eventTypes) == 0 {
		d.handlers = make(map[shared.EventType][]HandlerRegistration)
		return
	}
	for _, t := range eventTypes {
		delete(d.handlers, t)
	}
}

// Handlers returns a copy of the registrations for eventType in dispatch order.
func (d *Dispatcher) Handlers(eventType shared.EventType) []HandlerRegistration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.handlers[eventType])
}

// RegisteredTypes returns the event types that have at least one handler, sorted.
func (d *Dispatcher) RegisteredTypes() []shared.EventType {
	d.mu.RLock()
	defer d.mu.RUnlock()

	types := make([]shared.EventType, 0, len(d.handlers))
	for t := range d.handlers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// Middleware wraps handler execution.
type Middleware func(Handler) Handler

// Use adds middleware. The first middleware added is the outermost.
func (d *Dispatcher) Use(middleware Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middlewares = append(d.middlewares, middleware)
}

// PanicError is returned in place of a recovered handler panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// RecoveryMiddleware converts handler panics into *PanicError.
// The dispatcher always applies it outside any user middleware.
func RecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Value: r, Stack: debug.Stack()}
				}
			}()
			return next(ctx, event)
		}
	}
}

// LoggingMiddleware logs handler duration at debug level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, event shared.Event) error {
			start := time.Now()
			err := next(ctx, event)

			logger.Debug("handler finished",
				"event_type", event.EventType(),
				"event_id", event.Envelope().EventID,
				"duration", time.Since(start),
				"ok", err == nil,
			)
			return err
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT DISPATCHING
// ══════════════════════════════════════════════════════════════════════════════

// Publish records event in the audit log and delivers it to every compatible
// handler registered for its type. Handler failures are logged, never returned.
//
// The dispatcher is attached to ctx (unless one already is) so handlers can
// publish follow-up events with PublishEvent.
func (d *Dispatcher) Publish(ctx context.Context, event shared.Event) {
	if event == nil {
		d.logger.Warn("ignoring nil event")
		return
	}
	if _, ok := FromContext(ctx); !ok {
		ctx = WithDispatcher(ctx, d)
	}
	d.deliver(ctx, event)
}

func (d *Dispatcher) deliver(ctx context.Context, event shared.Event) {
	eventType := event.EventType()
	envelope := event.Envelope()

	d.audit.Append(event)
	d.metrics.RecordPublish(eventType)

	d.mu.RLock()
	registrations := slices.Clone(d.handlers[eventType])
	middlewares := slices.Clone(d.middlewares)
	d.mu.RUnlock()

	if len(registrations) == 0 {
		return
	}

	compatible := make([]HandlerRegistration, 0, len(registrations))
	for _, reg := range registrations {
		ok, err := reg.IsCompatible(envelope.Version)
		switch {
		case err != nil:
			d.logger.Warn("version check failed, skipping handler",
				"handler", reg.Name,
				"event_type", eventType,
				"event_version", envelope.Version,
				"min_version", reg.MinVersion,
				"error", err,
			)
			d.metrics.RecordSkipped()
		case !ok:
			d.logger.Warn("handler incompatible with event version",
				"handler", reg.Name,
				"event_type", eventType,
				"event_version", envelope.Version,
				"min_version", reg.MinVersion,
				"max_version", reg.MaxVersion,
			)
			d.metrics.RecordSkipped()
		default:
			compatible = append(compatible, reg)
		}
	}

	for _, reg := range compatible {
		d.execute(ctx, event, reg, middlewares)
	}
}

func (d *Dispatcher) execute(ctx context.Context, event shared.Event, reg HandlerRegistration, middlewares []Middleware) {
	handler := reg.Handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	handler = RecoveryMiddleware()(handler)

	start := time.Now()
	err := handler(ctx, event)
	d.metrics.RecordExecution(time.Since(start), err == nil)

	if err == nil {
		return
	}

	attrs := []any{
		"handler", reg.Name,
		"event_type", event.EventType(),
		"event_id", event.Envelope().EventID,
		"error", err,
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		attrs = append(attrs, "stack", string(pe.Stack))
	}
	d.logger.Error("event handler failed", attrs...)
}

// ══════════════════════════════════════════════════════════════════════════════
// AUDIT LOG
// ══════════════════════════════════════════════════════════════════════════════

// EventLog returns a copy of the audit log, oldest first. Each publish adds
// exactly one entry unless MaxEventLogEntries is set, in which case the oldest
// entries are dropped once the limit is reached.
func (d *Dispatcher) EventLog() []shared.Event {
	return d.audit.Events()
}

// EventLogLen returns the number of recorded events without copying them.
func (d *Dispatcher) EventLogLen() int {
	return d.audit.Len()
}

// ClearEventLog empties the audit log.
func (d *Dispatcher) ClearEventLog() {
	d.audit.Clear()
}

// EnableEventLogging turns audit recording on or off.
func (d *Dispatcher) EnableEventLogging(enabled bool) {
	d.audit.Enable(enabled)
}

// EventLoggingEnabled reports whether publishes are being recorded.
func (d *Dispatcher) EventLoggingEnabled() bool {
	return d.audit.Enabled()
}

// Metrics returns dispatcher metrics.
func (d *Dispatcher) Metrics() *DispatcherMetrics {
	return d.metrics
}

// Reset clears all registrations, the audit log and the metrics. Intended for
// tests that share one dispatcher across cases.
func (d *Dispatcher) Reset() {
	d.ClearHandlers()
	d.ClearEventLog()
	d.metrics.Reset()
}

// ══════════════════════════════════════════════════════════════════════════════
// CONVENIENCE BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// DispatcherBuilder provides fluent API for building a dispatcher.
type DispatcherBuilder struct {
	config      DispatcherConfig
	middlewares []Middleware
}

// NewDispatcherBuilder creates a new builder starting from DefaultDispatcherConfig.
func NewDispatcherBuilder() *DispatcherBuilder {
	return &DispatcherBuilder{
		config: DefaultDispatcherConfig(),
	}
}

// WithEventLogging toggles the audit log.
func (b *DispatcherBuilder) WithEventLogging(enabled bool) *DispatcherBuilder {
	b.config.EnableEventLog = enabled
	return b
}

// WithEventLogLimit bounds the audit log.
func (b *DispatcherBuilder) WithEventLogLimit(n int) *DispatcherBuilder {
	b.config.MaxEventLogEntries = n
	return b
}

// WithMetrics sets the metrics sink.
func (b *DispatcherBuilder) WithMetrics(metrics *DispatcherMetrics) *DispatcherBuilder {
	b.config.Metrics = metrics
	return b
}

// WithMiddleware appends middleware.
func (b *DispatcherBuilder) WithMiddleware(mw Middleware) *DispatcherBuilder {
	b.middlewares = append(b.middlewares, mw)
	return b
}

// WithLogger sets the logger.
func (b *DispatcherBuilder) WithLogger(logger *slog.Logger) *DispatcherBuilder {
	b.config.Logger = logger
	return b
}

// Build creates the dispatcher.
func (b *DispatcherBuilder) Build() *Dispatcher {
	d := NewDispatcher(b.config)
	for _, mw := range b.middlewares {
		d.Use(mw)
	}
	return d
}
