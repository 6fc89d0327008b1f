package messaging

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ErrInvalidVersion is returned when a version string cannot be parsed.
var ErrInvalidVersion = errors.New("invalid semantic version")

// CheckCompatibility reports whether eventVersion lies in the inclusive window
// [minVersion, maxVersion]. An empty bound is unbounded on that side.
//
// Any unparsable input yields false together with an error wrapping
// ErrInvalidVersion, so callers always fail closed.
func CheckCompatibility(eventVersion, minVersion, maxVersion string) (bool, error) {
	ev, err := parseVersion("event", eventVersion)
	if err != nil {
		return false, err
	}

	if minVersion != "" {
		lower, err := parseVersion("min", minVersion)
		if err != nil {
			return false, err
		}
		if ev.LessThan(lower) {
			return false, nil
		}
	}

	if maxVersion != "" {
		upper, err := parseVersion("max", maxVersion)
		if err != nil {
			return false, err
		}
		if ev.GreaterThan(upper) {
			return false, nil
		}
	}

	return true, nil
}

func parseVersion(role, raw string) (*semver.Version, error) {
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s version %q: %v", ErrInvalidVersion, role, raw, err)
	}
	return v, nil
}
