package one

import (
	"iter"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/schedule"
)

// Adapt normalizes ONE routes.
func Adapt(resp Response, filters schedule.Filters, scac schedule.SCAC, logger zerolog.Logger) iter.Seq[schedule.Schedule] {
	now := schedule.DefaultTimestamp()

	return carrier.Emit(resp.Routes, filters, logger, func(r Route) (schedule.Schedule, error) {
		legs, err := carrier.Legs(r.Legs, func(l Leg) (schedule.Leg, error) {
			return adaptLeg(l, now)
		})
		if err != nil {
			return schedule.Schedule{}, err
		}
		return schedule.NewSchedule(schedule.ScheduleSpec{
			SCAC:        scac,
			TransitTime: r.TransitDays,
			Legs:        legs,
		})
	})
}

func adaptLeg(l Leg, now schedule.DateTime) (schedule.Leg, error) {
	from, err := schedule.NewPoint(l.DepartureUnloc, l.DeparturePortName, l.DepartureTerminalName, l.DepartureTerminalCode)
	if err != nil {
		return schedule.Leg{}, err
	}
	to, err := schedule.NewPoint(l.ArrivalUnloc, l.ArrivalPortName, l.ArrivalTerminalName, l.ArrivalTerminalCode)
	if err != nil {
		return schedule.Leg{}, err
	}

	transport, err := schedule.NewTransportation(carrier.TransportType(l.TransportType), l.VesselName, "", l.IMONumber)
	if err != nil {
		return schedule.Leg{}, err
	}

	etd := carrier.Time(l.DepartureDateEstimated, now)

	return schedule.NewLeg(schedule.LegSpec{
		From:           from,
		To:             to,
		ETD:            etd,
		ETA:            carrier.Time(l.ArrivalDateEstimated, now),
		TransitTime:    l.TransitDays,
		Transportation: transport,
		Voyage:         schedule.NewVoyage(l.VoyageNumber, ""),
		Service:        schedule.NewService(l.ServiceCode, l.ServiceName),
		Cutoff: schedule.NewCutoff(
			carrier.OptionalTime(l.CYCutoff),
			carrier.OptionalTime(l.DocCutoff),
			carrier.OptionalTime(l.VGMCutoff),
			etd,
		),
	})
}
