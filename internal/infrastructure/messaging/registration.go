package messaging

import (
	"context"
	"reflect"
	"runtime"
	"strings"

	"github.com/lifedashboard/life-dashboard/internal/domain/shared"
)

// DefaultMinVersion is the lower compatibility bound used when none is given.
const DefaultMinVersion = shared.DefaultEventVersion

// Handler processes one event. A returned error (or panic) is logged by the
// dispatcher and never reaches the publisher.
type Handler func(ctx context.Context, event shared.Event) error

// HandlerRegistration binds a handler to one concrete event type and a
// compatibility window of payload versions.
type HandlerRegistration struct {
	Name       string
	EventType  shared.EventType
	MinVersion string
	MaxVersion string // empty means no upper bound
	Handler    Handler
}

// IsCompatible reports whether an event with the given version should be
// delivered to this registration.
func (r HandlerRegistration) IsCompatible(eventVersion string) (bool, error) {
	return CheckCompatibility(eventVersion, r.MinVersion, r.MaxVersion)
}

// RegisterOption customizes a registration.
type RegisterOption func(*HandlerRegistration)

// MinVersion sets the inclusive lower bound. Empty keeps DefaultMinVersion.
func MinVersion(v string) RegisterOption {
	return func(r *HandlerRegistration) {
		if v != "" {
			r.MinVersion = v
		}
	}
}

// MaxVersion sets the inclusive upper bound.
func MaxVersion(v string) RegisterOption {
	return func(r *HandlerRegistration) {
		r.MaxVersion = v
	}
}

// Named sets the name used for lookup and removal. Empty keeps the default,
// which is the handler function's own name.
func Named(name string) RegisterOption {
	return func(r *HandlerRegistration) {
		if name != "" {
			r.Name = name
		}
	}
}

func newRegistration(eventType shared.EventType, handler Handler, opts ...RegisterOption) HandlerRegistration {
	reg := HandlerRegistration{
		EventType:  eventType,
		MinVersion: DefaultMinVersion,
		Handler:    handler,
	}
	for _, opt := range opts {
		opt(&reg)
	}
	if reg.Name == "" {
		reg.Name = handlerName(handler)
	}
	return reg
}

// handlerName derives a readable name from the function symbol, e.g.
// "awardExperience", "(*Projector).OnLevelUp" or "main.func1".
func handlerName(h Handler) string {
	fn := runtime.FuncForPC(reflect.ValueOf(h).Pointer())
	if fn == nil {
		return "anonymous"
	}

	name := fn.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
