package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lifedashboard/life-dashboard/internal/domain/shared"
)

var (
	errVerifyFailed = errors.New("catalog verification failed")
	errUsage        = errors.New("usage: events encode <kind> [json]")
)

// ══════════════════════════════════════════════════════════════════════════════
// VERIFY
// ══════════════════════════════════════════════════════════════════════════════

// runVerify round-trips every registered kind through its text form. When
// kinds are given the catalog must match them exactly.
func runVerify(args []string, w io.Writer) error {
	kinds := shared.Kinds()
	failed := 0

	fmt.Fprintln(w, "Round trip:")
	for _, kind := range kinds {
		if err := roundTrip(kind); err != nil {
			fmt.Fprintf(w, "  FAIL %s: %v\n", kind, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "  ok   %s\n", kind)
	}
	fmt.Fprintf(w, "%d kinds registered, %d failed\n", len(kinds), failed)

	ok := failed == 0
	if len(args) > 0 {
		expected := make([]shared.EventType, len(args))
		for i, arg := range args {
			expected[i] = shared.EventType(arg)
		}

		report := shared.VerifyCatalog(expected)
		for _, kind := range report.Missing {
			fmt.Fprintf(w, "  missing %s\n", kind)
		}
		for _, kind := range report.Extra {
			fmt.Fprintf(w, "  extra   %s\n", kind)
		}
		ok = ok && report.OK()
	}

	if !ok {
		return errVerifyFailed
	}
	return nil
}

// roundTrip builds an event of kind with a fresh envelope and zero payload,
// encodes it, decodes it and checks the text form is stable.
func roundTrip(kind shared.EventType) error {
	event, err := shared.FromStructured(kind, envelopeFields(shared.NewBaseEvent()))
	if err != nil {
		return err
	}

	text, err := shared.ToText(event)
	if err != nil {
		return err
	}

	decoded, err := shared.DecodeText(text)
	if err != nil {
		return err
	}
	if decoded.EventType() != kind {
		return fmt.Errorf("decoded as %s", decoded.EventType())
	}

	again, err := shared.ToText(decoded)
	if err != nil {
		return err
	}
	if again != text {
		return fmt.Errorf("text form changed after round trip")
	}
	return nil
}

func envelopeFields(base shared.BaseEvent) map[string]any {
	return map[string]any{
		"event_id":  base.EventID,
		"timestamp": base.Timestamp.Format(time.RFC3339Nano),
		"version":   base.Version,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENCODE
// ══════════════════════════════════════════════════════════════════════════════

// runEncode builds an event from a JSON payload and prints its canonical text.
// Envelope fields missing from the payload are generated.
func runEncode(args []string, w io.Writer) error {
	if len(args) == 0 || len(args) > 2 {
		return errUsage
	}

	kind := shared.EventType(args[0])
	fields := map[string]any{}
	if len(args) == 2 {
		dec := json.NewDecoder(bytes.NewReader([]byte(args[1])))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			return fmt.Errorf("parse payload: %w", err)
		}
		if fields == nil {
			fields = map[string]any{}
		}
	}

	for k, v := range envelopeFields(shared.NewBaseEvent()) {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}

	event, err := shared.FromStructured(kind, fields)
	if err != nil {
		return err
	}
	text, err := shared.ToText(event)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, text)
	return nil
}
