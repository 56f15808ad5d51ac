package maersk

import (
	"iter"
	"strings"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/schedule"
)

const minutesPerDay = 24 * 60

// Adapt normalizes the transport schedules of every ocean product.
func Adapt(resp Response, filters schedule.Filters, scac schedule.SCAC, logger zerolog.Logger) iter.Seq[schedule.Schedule] {
	now := schedule.DefaultTimestamp()

	var routings []TransportSchedule
	for _, product := range resp.OceanProducts {
		routings = append(routings, product.TransportSchedules...)
	}

	return carrier.Emit(routings, filters, logger, func(ts TransportSchedule) (schedule.Schedule, error) {
		legs, err := carrier.Legs(ts.TransportLegs, func(l TransportLeg) (schedule.Leg, error) {
			return adaptLeg(l, now)
		})
		if err != nil {
			return schedule.Schedule{}, err
		}

		spec := schedule.ScheduleSpec{
			SCAC: scac,
			From: locationCode(ts.Facilities.CollectionOrigin),
			To:   locationCode(ts.Facilities.DeliveryDestination),
			ETD:  carrier.Time(ts.DepartureDateTime, legs[0].ETD),
			ETA:  carrier.Time(ts.ArrivalDateTime, legs[len(legs)-1].ETA),
			Legs: legs,
		}
		if minutes, err := ts.TransitTime.Int64(); err == nil {
			spec.TransitTime = carrier.Days(int(minutes / minutesPerDay))
		}
		return schedule.NewSchedule(spec)
	})
}

func adaptLeg(l TransportLeg, now schedule.DateTime) (schedule.Leg, error) {
	from, err := point(l.Facilities.StartLocation)
	if err != nil {
		return schedule.Leg{}, err
	}
	to, err := point(l.Facilities.EndLocation)
	if err != nil {
		return schedule.Leg{}, err
	}

	t := l.Transport
	var name, imo string
	if t.Vessel != nil {
		name, imo = t.Vessel.VesselName, t.Vessel.VesselIMONumber
	}
	// Maersk reports unassigned vessels with a dummy IMO number.
	if imo == "9999999" {
		imo = ""
	}
	transport, err := schedule.NewTransportation(carrier.TransportType(t.TransportMode), name, "", imo)
	if err != nil {
		return schedule.Leg{}, err
	}

	return schedule.NewLeg(schedule.LegSpec{
		From:           from,
		To:             to,
		ETD:            carrier.Time(l.DepartureDateTime, now),
		ETA:            carrier.Time(l.ArrivalDateTime, now),
		Transportation: transport,
		Voyage:         schedule.NewVoyage(t.CarrierDepartureVoyageNumber, ""),
		Service:        schedule.NewService(t.CarrierServiceCode, t.CarrierServiceName),
	})
}

func locationCode(loc Location) string {
	if loc.UNLocationCode != "" {
		return loc.UNLocationCode
	}
	return loc.CityUNLocationCode
}

// point sets terminal details only for terminal facilities.
func point(loc Location) (schedule.Point, error) {
	var terminalName, terminalCode string
	if strings.EqualFold(loc.LocationType, "TERMINAL") {
		terminalName, terminalCode = loc.LocationName, loc.CarrierSiteGeoID
	}
	return schedule.NewPoint(locationCode(loc), loc.CityName, terminalName, terminalCode)
}
