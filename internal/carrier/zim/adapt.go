package zim

import (
	"iter"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/schedule"
)

// Adapt normalizes ZIM routes. The Lloyd's code is the vessel's IMO number.
func Adapt(resp Response, filters schedule.Filters, scac schedule.SCAC, logger zerolog.Logger) iter.Seq[schedule.Schedule] {
	now := schedule.DefaultTimestamp()

	return carrier.Emit(resp.Response.Routes, filters, logger, func(r Route) (schedule.Schedule, error) {
		legs, err := carrier.Legs(r.RouteLegs, func(l RouteLeg) (schedule.Leg, error) {
			return adaptLeg(l, now)
		})
		if err != nil {
			return schedule.Schedule{}, err
		}

		return schedule.NewSchedule(schedule.ScheduleSpec{
			SCAC:        scac,
			From:        r.DeparturePort,
			To:          r.ArrivalPort,
			ETD:         carrier.Time(r.DepartureDate, legs[0].ETD),
			ETA:         carrier.Time(r.ArrivalDate, legs[len(legs)-1].ETA),
			TransitTime: r.TransitTime,
			Legs:        legs,
		})
	})
}

func adaptLeg(l RouteLeg, now schedule.DateTime) (schedule.Leg, error) {
	from, err := schedule.NewPoint(l.DeparturePort, l.DeparturePortName, l.DepartureTerminalName, l.DepartureTerminalCode)
	if err != nil {
		return schedule.Leg{}, err
	}
	to, err := schedule.NewPoint(l.ArrivalPort, l.ArrivalPortName, l.ArrivalTerminalName, l.ArrivalTerminalCode)
	if err != nil {
		return schedule.Leg{}, err
	}

	transport, err := schedule.NewTransportation(carrier.TransportType(l.TransportMode), l.VesselName, "", l.LloydsCode)
	if err != nil {
		return schedule.Leg{}, err
	}

	etd := carrier.Time(l.DepartureDate, now)

	return schedule.NewLeg(schedule.LegSpec{
		From:           from,
		To:             to,
		ETD:            etd,
		ETA:            carrier.Time(l.ArrivalDate, now),
		Transportation: transport,
		Voyage:         schedule.NewVoyage(l.Voyage, l.ConsortSailingNumber),
		Service:        schedule.NewService(l.Line, l.LineName),
		Cutoff: schedule.NewCutoff(
			carrier.OptionalTime(l.ContainerClosingDate),
			carrier.OptionalTime(l.DocClosingDate),
			carrier.OptionalTime(l.VGMClosingDate),
			etd,
		),
	})
}
