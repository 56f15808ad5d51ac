package iqax

import (
	"iter"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/schedule"
)

// Adapt normalizes IQAX route groups into schedules of scac.
func Adapt(resp Response, filters schedule.Filters, scac schedule.SCAC, logger zerolog.Logger) iter.Seq[schedule.Schedule] {
	now := schedule.DefaultTimestamp()

	var routes []Route
	for _, group := range resp.RouteGroupsList {
		routes = append(routes, group.Route...)
	}

	return carrier.Emit(routes, filters, logger, func(r Route) (schedule.Schedule, error) {
		legs, err := carrier.Legs(r.Leg, func(l Leg) (schedule.Leg, error) {
			return adaptLeg(l, now)
		})
		if err != nil {
			return schedule.Schedule{}, err
		}

		return schedule.NewSchedule(schedule.ScheduleSpec{
			SCAC:        scac,
			From:        r.POR.Location.UNLocCode,
			To:          r.FND.Location.UNLocCode,
			ETD:         carrier.Time(r.POR.ETD, legs[0].ETD),
			ETA:         carrier.Time(r.FND.ETA, legs[len(legs)-1].ETA),
			TransitTime: r.TransitTime,
			Legs:        legs,
		})
	})
}

func adaptLeg(l Leg, now schedule.DateTime) (schedule.Leg, error) {
	from, err := point(l.FromPoint.Location)
	if err != nil {
		return schedule.Leg{}, err
	}
	to, err := point(l.ToPoint.Location)
	if err != nil {
		return schedule.Leg{}, err
	}

	var vesselName, imo string
	if l.Vessel != nil {
		vesselName, imo = l.Vessel.Name, l.Vessel.IMO
	}
	transport, err := schedule.NewTransportation(carrier.TransportType(l.TransportMode), vesselName, "", imo)
	if err != nil {
		return schedule.Leg{}, err
	}

	var service *schedule.Service
	if l.Service != nil {
		service = schedule.NewService(l.Service.Code, l.Service.Name)
	}

	etd := carrier.Time(l.FromPoint.ETD, now)

	return schedule.NewLeg(schedule.LegSpec{
		From:           from,
		To:             to,
		ETD:            etd,
		ETA:            carrier.Time(l.ToPoint.ETA, now),
		Transportation: transport,
		Voyage:         schedule.NewVoyage(l.InternalVoyageNumber, l.ExternalVoyageNumber),
		Service:        service,
		Cutoff: schedule.NewCutoff(
			carrier.OptionalTime(l.FromPoint.DefaultCutoff),
			carrier.OptionalTime(l.FromPoint.DocCutoff),
			carrier.OptionalTime(l.FromPoint.VGMCutoff),
			etd,
		),
	})
}

// Terminal fields come from the facility pointer when IQAX sends one.
func point(loc Location) (schedule.Point, error) {
	if loc.Facility == nil {
		return schedule.NewPoint(loc.UNLocCode, loc.LocationName, "", "")
	}
	return schedule.NewPoint(loc.UNLocCode, loc.LocationName, loc.Facility.FacilityName, loc.Facility.FacilityCode)
}
