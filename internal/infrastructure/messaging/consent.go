package messaging

import (
	"context"
	"log/slog"

	"github.com/lifedashboard/life-dashboard/internal/domain/shared"
	"github.com/lifedashboard/life-dashboard/pkg/circuitbreaker"
)

// ConsentChecker answers whether a subject has consented to a purpose of
// processing. The gate uses the event category ("journal", "user", ...) as purpose.
type ConsentChecker interface {
	HasConsent(ctx context.Context, subjectID int64, purpose string) (bool, error)
}

// ConsentCheckerFunc adapts a function to ConsentChecker.
type ConsentCheckerFunc func(ctx context.Context, subjectID int64, purpose string) (bool, error)

// HasConsent implements ConsentChecker.
func (f ConsentCheckerFunc) HasConsent(ctx context.Context, subjectID int64, purpose string) (bool, error) {
	return f(ctx, subjectID, purpose)
}

// AllowAll grants every consent request.
var AllowAll ConsentChecker = ConsentCheckerFunc(func(context.Context, int64, string) (bool, error) {
	return true, nil
})

// ══════════════════════════════════════════════════════════════════════════════
// CONSENT GATE
// ══════════════════════════════════════════════════════════════════════════════

// ConsentGate wraps a Dispatcher and withholds privacy-sensitive events whose
// subject has not consented. Registry and audit log methods are the wrapped
// dispatcher's.
type ConsentGate struct {
	*Dispatcher
	checker ConsentChecker
	logger  *slog.Logger
}

// NewConsentGate wraps d. A nil checker defaults to AllowAll; a nil logger to
// the dispatcher's.
func NewConsentGate(d *Dispatcher, checker ConsentChecker, logger *slog.Logger) *ConsentGate {
	if checker == nil {
		checker = AllowAll
	}
	if logger == nil {
		logger = d.logger
	}
	return &ConsentGate{
		Dispatcher: d,
		checker:    checker,
		logger:     logger,
	}
}

// Publish delivers event through the wrapped dispatcher unless it is
// privacy-sensitive and either lacks a subject, lacks consent, or consent
// cannot be determined. Withheld events never reach the audit log.
func (g *ConsentGate) Publish(ctx context.Context, event shared.Event) {
	if event == nil {
		g.logger.Warn("ignoring nil event")
		return
	}
	if _, ok := FromContext(ctx); !ok {
		ctx = WithDispatcher(ctx, g)
	}
	if !g.admit(ctx, event) {
		g.metrics.RecordWithheld()
		return
	}
	g.Dispatcher.Publish(ctx, event)
}

func (g *ConsentGate) admit(ctx context.Context, event shared.Event) bool {
	if !shared.IsPrivacySensitive(event) {
		return true
	}

	eventType := event.EventType()
	subjectID, ok := shared.SubjectOf(event)
	if !ok {
		g.logger.Error("privacy-sensitive event is missing subject identifier, dropping",
			"event_type", eventType,
			"event_id", event.Envelope().EventID,
		)
		return false
	}

	purpose := eventType.Category()
	granted, err := g.checker.HasConsent(ctx, subjectID, purpose)
	if err != nil {
		g.logger.Error("consent check failed, dropping event",
			"event_type", eventType,
			"subject_id", subjectID,
			"purpose", purpose,
			"error", err,
		)
		return false
	}
	if !granted {
		g.logger.Info("consent not granted, skipping event",
			"event_type", eventType,
			"subject_id", subjectID,
			"purpose", purpose,
		)
		return false
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// BREAKER
// ══════════════════════════════════════════════════════════════════════════════

// BreakerChecker guards a ConsentChecker with a circuit breaker so an
// unavailable consent store fails fast. An open circuit is reported as an
// error, which the gate treats as "withhold".
type BreakerChecker struct {
	next    ConsentChecker
	breaker *circuitbreaker.CircuitBreaker
}

// NewBreakerChecker wraps next with breaker.
func NewBreakerChecker(next ConsentChecker, breaker *circuitbreaker.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{next: next, breaker: breaker}
}

// HasConsent implements ConsentChecker.
func (c *BreakerChecker) HasConsent(ctx context.Context, subjectID int64, purpose string) (bool, error) {
	var granted bool
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		granted, err = c.next.HasConsent(ctx, subjectID, purpose)
		return err
	})
	if err != nil {
		return false, err
	}
	return granted, nil
}
