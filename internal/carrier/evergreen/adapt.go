package evergreen

import (
	"iter"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/schedule"
)

// Adapt normalizes decoded Evergreen stream records.
func Adapt(routes []Route, filters schedule.Filters, scac schedule.SCAC, logger zerolog.Logger) iter.Seq[schedule.Schedule] {
	now := schedule.DefaultTimestamp()

	return carrier.Emit(routes, filters, logger, func(r Route) (schedule.Schedule, error) {
		legs, err := carrier.Legs(r.Legs, func(l Leg) (schedule.Leg, error) {
			return adaptLeg(l, now)
		})
		if err != nil {
			return schedule.Schedule{}, err
		}

		return schedule.NewSchedule(schedule.ScheduleSpec{
			SCAC:        scac,
			From:        r.Origin.UNLocode,
			To:          r.Destination.UNLocode,
			ETD:         carrier.Time(r.Origin.Time, legs[0].ETD),
			ETA:         carrier.Time(r.Destination.Time, legs[len(legs)-1].ETA),
			TransitTime: r.TransitDays,
			Legs:        legs,
		})
	})
}

func adaptLeg(l Leg, now schedule.DateTime) (schedule.Leg, error) {
	from, err := schedule.NewPoint(l.From.UNLocode, l.From.Name, l.From.TerminalName, l.From.TerminalCode)
	if err != nil {
		return schedule.Leg{}, err
	}
	to, err := schedule.NewPoint(l.To.UNLocode, l.To.Name, l.To.TerminalName, l.To.TerminalCode)
	if err != nil {
		return schedule.Leg{}, err
	}

	transport, err := schedule.NewTransportation(carrier.TransportType(l.Mode), l.VesselName, "", l.VesselIMO)
	if err != nil {
		return schedule.Leg{}, err
	}

	etd := carrier.Time(l.From.Time, now)

	var cutoff *schedule.Cutoff
	if l.Cutoffs != nil {
		cutoff = schedule.NewCutoff(
			carrier.OptionalTime(l.Cutoffs.CY),
			carrier.OptionalTime(l.Cutoffs.Doc),
			carrier.OptionalTime(l.Cutoffs.VGM),
			etd,
		)
	}

	return schedule.NewLeg(schedule.LegSpec{
		From:           from,
		To:             to,
		ETD:            etd,
		ETA:            carrier.Time(l.To.Time, now),
		Transportation: transport,
		Voyage:         schedule.NewVoyage(l.Voyage, ""),
		Service:        schedule.NewService(l.ServiceCode, l.ServiceName),
		Cutoff:         cutoff,
	})
}
