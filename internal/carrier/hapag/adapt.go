package hapag

import (
	"iter"
	"strings"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/schedule"
)

// Adapt normalizes DCSA point-to-point routes. Route level cutoffs belong to
// the first leg.
func Adapt(routes []Route, filters schedule.Filters, scac schedule.SCAC, logger zerolog.Logger) iter.Seq[schedule.Schedule] {
	now := schedule.DefaultTimestamp()

	return carrier.Emit(routes, filters, logger, func(r Route) (schedule.Schedule, error) {
		cutoffs := cutoffTimes(r.CutOffTimes)

		legs, err := carrier.Legs(r.Legs, func(l Leg) (schedule.Leg, error) {
			var c cutoffSet
			if l.SequenceNumber <= 1 {
				c = cutoffs
			}
			return adaptLeg(l, c, scac, now)
		})
		if err != nil {
			return schedule.Schedule{}, err
		}

		return schedule.NewSchedule(schedule.ScheduleSpec{
			SCAC:        scac,
			From:        r.PlaceOfReceipt.Location.UNLocationCode,
			To:          r.PlaceOfDelivery.Location.UNLocationCode,
			ETD:         carrier.Time(r.PlaceOfReceipt.DateTime, legs[0].ETD),
			ETA:         carrier.Time(r.PlaceOfDelivery.DateTime, legs[len(legs)-1].ETA),
			TransitTime: r.TransitTime,
			Legs:        legs,
		})
	})
}

type cutoffSet struct {
	cy, doc, vgm *schedule.DateTime
}

func cutoffTimes(in []CutOff) cutoffSet {
	var c cutoffSet
	for _, co := range in {
		switch strings.ToUpper(co.CutOffDateTimeCode) {
		case "FCO":
			c.cy = carrier.OptionalTime(co.CutOffDateTime)
		case "DCO":
			c.doc = carrier.OptionalTime(co.CutOffDateTime)
		case "VCO":
			c.vgm = carrier.OptionalTime(co.CutOffDateTime)
		}
	}
	return c
}

func adaptLeg(l Leg, c cutoffSet, scac schedule.SCAC, now schedule.DateTime) (schedule.Leg, error) {
	from, err := point(l.Departure.Location)
	if err != nil {
		return schedule.Leg{}, err
	}
	to, err := point(l.Arrival.Location)
	if err != nil {
		return schedule.Leg{}, err
	}

	t := l.Transport
	var name, imo string
	if t.Vessel != nil {
		name, imo = t.Vessel.Name, t.Vessel.VesselIMONumber
	}
	transport, err := schedule.NewTransportation(mode(t.ModeOfTransport), name, "", imo)
	if err != nil {
		return schedule.Leg{}, err
	}

	// Prefer the partner entry of the operating carrier.
	var partner ServicePartner
	for i, p := range t.ServicePartners {
		if i == 0 || strings.EqualFold(p.CarrierCode, string(scac)) {
			partner = p
		}
	}

	etd := carrier.Time(l.Departure.DateTime, now)

	return schedule.NewLeg(schedule.LegSpec{
		From:           from,
		To:             to,
		ETD:            etd,
		ETA:            carrier.Time(l.Arrival.DateTime, now),
		Transportation: transport,
		Voyage:         schedule.NewVoyage(partner.CarrierExportVoyageNumber, t.UniversalExportVoyageReference),
		Service:        schedule.NewService(partner.CarrierServiceCode, partner.CarrierServiceName),
		Cutoff:         schedule.NewCutoff(c.cy, c.doc, c.vgm, etd),
	})
}

// DCSA spells combined modes with an underscore.
func mode(m string) schedule.TransportType {
	switch strings.ToUpper(m) {
	case "RAIL_TRUCK":
		return schedule.TransportTruckRail
	case "BARGE_TRUCK", "BARGE_RAIL":
		return schedule.TransportIntermodal
	default:
		return carrier.TransportType(m)
	}
}

// DCSA locations name the port, never the terminal; only the facility code
// identifies it.
func point(loc Location) (schedule.Point, error) {
	return schedule.NewPoint(loc.UNLocationCode, loc.LocationName, "", loc.FacilityCode)
}
