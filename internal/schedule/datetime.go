package schedule

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateTimeLayout is the wire format of every canonical timestamp.
const DateTimeLayout = "2006-01-02T15:04:05"

// DateLayout is the wire format of query dates.
const DateLayout = "2006-01-02"

var (
	ErrEmptyDateTime   = errors.New("empty datetime")
	ErrInvalidDateTime = errors.New("invalid datetime")
)

// Upstream carriers mix offsets, trailing Z, fractional seconds and plain
// dates. Fractional seconds are accepted by every layout that ends in :05.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02T15:04Z07:00",
	"2006-01-02",
}

// DateTime is a wall-clock timestamp at second precision without a zone.
// Carriers report local port times; the offset is dropped and the wall clock
// kept so that values from different carriers compare as printed.
type DateTime struct {
	t time.Time
}

// NewDateTime keeps the wall clock of t and discards sub-second precision and
// the location.
func NewDateTime(t time.Time) DateTime {
	return DateTime{t: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}
}

// ParseDateTime parses any of the upstream timestamp shapes.
func ParseDateTime(s string) (DateTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateTime{}, ErrEmptyDateTime
	}

	for _, layout := range dateTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return NewDateTime(t), nil
		}
	}

	return DateTime{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, s)
}

// MustParseDateTime is ParseDateTime for literals known to be valid.
func MustParseDateTime(s string) DateTime {
	d, err := ParseDateTime(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DefaultTimestamp is substituted for dates a carrier leaves out. Adapters
// evaluate it once per invocation so every gap in one payload gets the same
// value.
func DefaultTimestamp() DateTime {
	return NewDateTime(time.Now())
}

// Time returns the wall clock as a UTC time.Time.
func (d DateTime) Time() time.Time { return d.t }

func (d DateTime) IsZero() bool { return d.t.IsZero() }

func (d DateTime) Before(o DateTime) bool { return d.t.Before(o.t) }

func (d DateTime) After(o DateTime) bool { return d.t.After(o.t) }

func (d DateTime) Equal(o DateTime) bool { return d.t.Equal(o.t) }

// Compare returns -1, 0 or +1.
func (d DateTime) Compare(o DateTime) int { return d.t.Compare(o.t) }

// Ptr returns a pointer to a copy of d, for optional fields.
func (d DateTime) Ptr() *DateTime { return &d }

func (d DateTime) String() string {
	return d.t.Format(DateTimeLayout)
}

// MarshalJSON implements json.Marshaler.
func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DateTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = DateTime{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decoding datetime: %w", err)
	}

	parsed, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// WholeDaysBetween returns the number of complete days from from to to, or
// zero when to precedes from.
func WholeDaysBetween(from, to DateTime) int {
	if to.Before(from) {
		return 0
	}
	return int(to.t.Sub(from.t) / (24 * time.Hour))
}
