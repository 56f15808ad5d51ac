// Package carrier defines the contract every carrier integration implements
// and the helpers adapters share when normalizing upstream payloads.
package carrier

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/schedule"
)

// ErrUnsupportedSCAC is returned when a carrier family is asked to serve a
// code it does not operate.
var ErrUnsupportedSCAC = errors.New("scac not served by this carrier")

// Carrier fetches and normalizes the schedules of one SCAC.
type Carrier interface {
	// SCAC returns the carrier code this client answers for.
	SCAC() schedule.SCAC

	// Name returns the carrier family name for logging.
	Name() string

	// Schedules queries the carrier and returns the filtered canonical
	// schedules. The sequence is single-use.
	Schedules(ctx context.Context, q schedule.Query) (iter.Seq[schedule.Schedule], error)
}

// CheckSCAC returns ErrUnsupportedSCAC unless scac is one of served.
func CheckSCAC(family string, scac schedule.SCAC, served ...schedule.SCAC) error {
	if !slices.Contains(served, scac) {
		return fmt.Errorf("%s: %w: %s", family, ErrUnsupportedSCAC, scac)
	}
	return nil
}

// Emit turns upstream routing records into a lazy schedule sequence. A record
// whose build fails is logged and skipped; schedules that do not pass filters
// are dropped. Nothing is built until the sequence is ranged over.
func Emit[R any](records []R, filters schedule.Filters, logger zerolog.Logger, build func(R) (schedule.Schedule, error)) iter.Seq[schedule.Schedule] {
	return func(yield func(schedule.Schedule) bool) {
		for i, record := range records {
			s, err := build(record)
			if err != nil {
				logger.Warn().Err(err).Int("record", i).Msg("skipping malformed schedule")
				continue
			}
			if !filters.Match(s) {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Legs builds every leg of one routing record. The first failure aborts the
// record, since a schedule with a hole in its routing is not bookable. A
// record without legs is rejected before any caller indexes into it.
func Legs[L any](legs []L, build func(L) (schedule.Leg, error)) ([]schedule.Leg, error) {
	if len(legs) == 0 {
		return nil, &schedule.SchemaViolation{Field: "legs", Value: 0, Reason: "schedule has no legs"}
	}
	out := make([]schedule.Leg, 0, len(legs))
	for i, raw := range legs {
		leg, err := build(raw)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		out = append(out, leg)
	}
	return out, nil
}

// Time parses an upstream timestamp, substituting fallback when the carrier
// left it out or sent something unparseable.
func Time(raw string, fallback schedule.DateTime) schedule.DateTime {
	d, err := schedule.ParseDateTime(raw)
	if err != nil {
		return fallback
	}
	return d
}

// OptionalTime parses an upstream timestamp that may be missing.
func OptionalTime(raw string) *schedule.DateTime {
	d, err := schedule.ParseDateTime(raw)
	if err != nil {
		return nil
	}
	return &d
}

// Days wraps an upstream transit time.
func Days(n int) *int {
	return &n
}

// transportModes maps the mode vocabulary of the carriers onto the canonical
// transport types.
var transportModes = map[string]schedule.TransportType{
	"VESSEL":       schedule.TransportVessel,
	"VSL":          schedule.TransportVessel,
	"MVS":          schedule.TransportVessel,
	"SEA":          schedule.TransportVessel,
	"OCEAN":        schedule.TransportVessel,
	"MAINLINE":     schedule.TransportVessel,
	"BARGE":        schedule.TransportBarge,
	"BAR":          schedule.TransportBarge,
	"FEEDER":       schedule.TransportFeeder,
	"FEF":          schedule.TransportFeeder,
	"FEO":          schedule.TransportFeeder,
	"TRUCK":        schedule.TransportTruck,
	"TRK":          schedule.TransportTruck,
	"RAIL":         schedule.TransportRail,
	"RCO":          schedule.TransportRail,
	"RR":           schedule.TransportRail,
	"TRUCK/RAIL":   schedule.TransportTruckRail,
	"TRUCK / RAIL": schedule.TransportTruckRail,
	"ROAD":         schedule.TransportRoad,
	"ROAD/RAIL":    schedule.TransportRoadRail,
	"ROAD / RAIL":  schedule.TransportRoadRail,
	"INTERMODAL":   schedule.TransportIntermodal,
	"IMD":          schedule.TransportIntermodal,
}

// TransportType maps an upstream mode to the canonical type. Unknown or
// missing modes are treated as ocean legs.
func TransportType(mode string) schedule.TransportType {
	if t, ok := transportModes[strings.ToUpper(strings.TrimSpace(mode))]; ok {
		return t
	}
	return schedule.TransportVessel
}
