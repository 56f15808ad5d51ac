package cma

import (
	"iter"
	"strings"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/schedule"
)

// Adapt normalizes routing finder results. Routings operated by another
// brand of the group keep that brand's SCAC.
func Adapt(routings []Routing, filters schedule.Filters, scac schedule.SCAC, logger zerolog.Logger) iter.Seq[schedule.Schedule] {
	now := schedule.DefaultTimestamp()

	return carrier.Emit(routings, filters, logger, func(r Routing) (schedule.Schedule, error) {
		legs, err := carrier.Legs(r.RoutingDetails, func(d RoutingDetail) (schedule.Leg, error) {
			return adaptLeg(d, now)
		})
		if err != nil {
			return schedule.Schedule{}, err
		}

		code := scac
		if brand, ok := brands[r.ShippingCompany]; ok {
			code = brand
		}

		return schedule.NewSchedule(schedule.ScheduleSpec{
			SCAC:        code,
			TransitTime: r.TransitTime,
			Legs:        legs,
		})
	})
}

func adaptLeg(d RoutingDetail, now schedule.DateTime) (schedule.Leg, error) {
	from, err := point(d.PointFrom.Location)
	if err != nil {
		return schedule.Leg{}, err
	}
	to, err := point(d.PointTo.Location)
	if err != nil {
		return schedule.Leg{}, err
	}

	etd := carrier.Time(d.PointFrom.DepartureDateLocal, now)
	eta := carrier.Time(d.PointTo.ArrivalDateLocal, now)

	t := d.Transportation
	mode := t.MeanOfTransport
	var name, refType, ref string
	if v := t.Vehicule; v != nil {
		if v.VehiculeType != "" {
			mode = v.VehiculeType
		}
		name, refType, ref = v.VehiculeName, v.ReferenceType, v.Reference
	}
	transport, err := schedule.NewTransportation(carrier.TransportType(mode), name, refType, ref)
	if err != nil {
		return schedule.Leg{}, err
	}

	var voyage schedule.Voyage
	var service *schedule.Service
	if v := t.Voyage; v != nil {
		voyage = schedule.NewVoyage(v.VoyageReference, v.PartnerVoyageReference)
		if v.Service != nil {
			service = schedule.NewService(v.Service.Code, v.Service.CommercialName)
		}
	} else {
		voyage = schedule.NewVoyage("", "")
	}

	var cutoff *schedule.Cutoff
	if c := d.PointFrom.Cutoff; c != nil {
		cutoff = schedule.NewCutoff(
			carrier.OptionalTime(c.PortCutoff.ClosingDateLocal),
			carrier.OptionalTime(c.ShippingInstructionAcceptance.ClosingDateLocal),
			carrier.OptionalTime(c.VGM.ClosingDateLocal),
			etd,
		)
	}

	return schedule.NewLeg(schedule.LegSpec{
		From:           from,
		To:             to,
		ETD:            etd,
		ETA:            eta,
		TransitTime:    d.LegTransitTime,
		Transportation: transport,
		Voyage:         voyage,
		Service:        service,
		Cutoff:         cutoff,
	})
}

// point reads the UN/LOCODE from the location codifications, falling back to
// the internal code. Terminal details exist only for facility locations.
func point(loc map[string]any) (schedule.Point, error) {
	code := carrier.LookupString(loc, "internalCode")
	if unloc, ok := carrier.Find(loc, codification("UNLOCODE"), "locationCodifications"); ok {
		code = carrier.LookupString(unloc, "codification")
	}

	var terminalName, terminalCode string
	if facility, ok := carrier.Lookup(loc, "facility"); ok {
		terminalName = carrier.LookupString(facility, "name")
		terminalCode = carrier.LookupString(facility, "internalCode")
		if smdg, ok := carrier.Find(facility, codification("SMDG"), "facilityCodifications"); ok {
			terminalCode = carrier.LookupString(smdg, "codification")
		}
	}

	return schedule.NewPoint(code, carrier.LookupString(loc, "name"), terminalName, terminalCode)
}

func codification(kind string) func(any) bool {
	return func(v any) bool {
		return strings.EqualFold(carrier.LookupString(v, "codificationType"), kind)
	}
}
