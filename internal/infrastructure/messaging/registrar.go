package messaging

import (
	"github.com/lifedashboard/life-dashboard/internal/domain/shared"
)

// Registrar collects handler bindings during bootstrap and applies them to a
// dispatcher in declaration order.
//
//	var handlers messaging.Registrar
//	handlers.Handle(shared.EventQuestCompleted, awardExperience)
//	handlers.Handle(shared.EventLevelUp, announceLevel, messaging.MinVersion("1.1.0"))
//	d := handlers.Build(messaging.DefaultDispatcherConfig())
type Registrar struct {
	bindings []binding
}

type binding struct {
	eventType shared.EventType
	handler   Handler
	opts      []RegisterOption
}

// Handle queues a registration and returns the registrar for chaining.
func (r *Registrar) Handle(eventType shared.EventType, handler Handler, opts ...RegisterOption) *Registrar {
	r.bindings = append(r.bindings, binding{eventType: eventType, handler: handler, opts: opts})
	return r
}

// Len returns the number of queued registrations.
func (r *Registrar) Len() int {
	return len(r.bindings)
}

// Apply registers every queued binding on d.
func (r *Registrar) Apply(d *Dispatcher) {
	for _, b := range r.bindings {
		d.RegisterHandler(b.eventType, b.handler, b.opts...)
	}
}

// Build creates a dispatcher from config with every queued binding registered.
func (r *Registrar) Build(config DispatcherConfig) *Dispatcher {
	d := NewDispatcher(config)
	r.Apply(d)
	return d
}

// Handles registers handler on d and returns it unchanged, so it can be used
// in a package-level var initialiser next to the handler's definition.
func Handles(d *Dispatcher, eventType shared.EventType, handler Handler, opts ...RegisterOption) Handler {
	d.RegisterHandler(eventType, handler, opts...)
	return handler
}
