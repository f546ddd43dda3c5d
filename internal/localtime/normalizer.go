// Package localtime converts the export's offset-less wall-clock timestamps
// into UTC instants.
//
// The export records every timestamp in the library's local time without a
// UTC offset. The offset has to be resolved per date from the zone's rules
// (standard vs. daylight), never assumed.
package localtime

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // embedded zone rules
)

// DefaultZone is the library's local zone unless configured otherwise.
const DefaultZone = "America/New_York"

// ErrInvalidTimestamp is returned for literals that are neither ISO 8601
// local dates or date-times nor RFC 3339 instants.
var ErrInvalidTimestamp = errors.New("invalid local timestamp")

// Fractional seconds after the seconds field are accepted by time.Parse even
// though the layouts do not mention them.
var layouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Normalizer resolves wall-clock literals in one fixed zone.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer loads the named IANA zone.
func NewNormalizer(zone string) (*Normalizer, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", zone, err)
	}
	return &Normalizer{loc: loc}, nil
}

// Zone returns the configured zone name.
func (n *Normalizer) Zone() string {
	return n.loc.String()
}

// ToUTC interprets text as wall-clock time in the configured zone and renders
// the instant in UTC, e.g. "2020-01-14T09:48:05" -> "2020-01-14T14:48:05Z".
// Literals that already carry Z or a numeric offset are converted as given.
func (n *Normalizer) ToUTC(text string) (string, error) {
	if instant, ok := parseInstant(text); ok {
		return instant.UTC().Format(time.RFC3339), nil
	}
	wall, err := parseCivil(text)
	if err != nil {
		return "", err
	}
	return n.Resolve(wall).UTC().Format(time.RFC3339), nil
}

// OptToUTC is ToUTC for optional attributes: an absent value stays absent.
func (n *Normalizer) OptToUTC(text string, present bool) (*string, error) {
	if !present {
		return nil, nil
	}
	s, err := n.ToUTC(text)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Resolve maps civil date-time fields (carried in a UTC time value) to the
// instant they denote in the configured zone.
//
// A wall time skipped by a spring-forward transition is read with the offset
// in force before the jump. A wall time repeated by a fall-back transition
// resolves to its first occurrence.
func (n *Normalizer) Resolve(wall time.Time) time.Time {
	var (
		resolved time.Time
		found    bool
		seen     = make(map[int]bool, 2)
	)

	// Offsets on either side of any transition near this wall time.
	for _, near := range []time.Time{wall.Add(-24 * time.Hour), wall, wall.Add(24 * time.Hour)} {
		_, offset := near.In(n.loc).Zone()
		if seen[offset] {
			continue
		}
		seen[offset] = true

		instant := wall.Add(-time.Duration(offset) * time.Second)
		if _, actual := instant.In(n.loc).Zone(); actual != offset {
			continue
		}
		if !found || instant.Before(resolved) {
			resolved = instant
			found = true
		}
	}

	if found {
		return resolved
	}

	_, before := wall.Add(-24 * time.Hour).In(n.loc).Zone()
	return wall.Add(-time.Duration(before) * time.Second)
}

// WeekdayName returns the English weekday of the local date in text. It is
// read from the literal itself, not from the UTC-shifted instant.
func WeekdayName(text string) (string, error) {
	if instant, ok := parseInstant(text); ok {
		return instant.Weekday().String(), nil
	}
	wall, err := parseCivil(text)
	if err != nil {
		return "", err
	}
	return wall.Weekday().String(), nil
}

// parseCivil reads the civil fields of text into a UTC time value.
func parseCivil(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, text)
}

// parseInstant reads RFC 3339 literals with an explicit offset. The parsed
// value keeps that offset, so its date fields are the ones written.
func parseInstant(text string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(text))
	return t, err == nil
}
