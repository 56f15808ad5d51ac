package yangming

import (
	"iter"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/schedule"
)

// Adapt normalizes Yang Ming routes.
func Adapt(resp Response, filters schedule.Filters, scac schedule.SCAC, logger zerolog.Logger) iter.Seq[schedule.Schedule] {
	now := schedule.DefaultTimestamp()

	return carrier.Emit(resp.Data, filters, logger, func(r Route) (schedule.Schedule, error) {
		legs, err := carrier.Legs(r.Legs, func(l Leg) (schedule.Leg, error) {
			return adaptLeg(l, now)
		})
		if err != nil {
			return schedule.Schedule{}, err
		}

		return schedule.NewSchedule(schedule.ScheduleSpec{
			SCAC:        scac,
			From:        r.POLCode,
			To:          r.PODCode,
			ETD:         carrier.Time(r.ETD, legs[0].ETD),
			ETA:         carrier.Time(r.ETA, legs[len(legs)-1].ETA),
			TransitTime: r.TransitTime,
			Legs:        legs,
		})
	})
}

func adaptLeg(l Leg, now schedule.DateTime) (schedule.Leg, error) {
	from, err := schedule.NewPoint(l.POLCode, l.POLName, l.POLTerminal, l.POLTmlCode)
	if err != nil {
		return schedule.Leg{}, err
	}
	to, err := schedule.NewPoint(l.PODCode, l.PODName, l.PODTerminal, l.PODTmlCode)
	if err != nil {
		return schedule.Leg{}, err
	}

	transport, err := schedule.NewTransportation(carrier.TransportType(l.TransMode), l.VesselName, "", l.IMO)
	if err != nil {
		return schedule.Leg{}, err
	}

	etd := carrier.Time(l.ETD, now)

	return schedule.NewLeg(schedule.LegSpec{
		From:           from,
		To:             to,
		ETD:            etd,
		ETA:            carrier.Time(l.ETA, now),
		Transportation: transport,
		Voyage:         schedule.NewVoyage(l.Voyage, l.ExtVoyage),
		Service:        schedule.NewService(l.ServiceCode, l.ServiceName),
		Cutoff: schedule.NewCutoff(
			carrier.OptionalTime(l.CYCutoff),
			carrier.OptionalTime(l.DocCutoff),
			carrier.OptionalTime(l.VGMCutoff),
			etd,
		),
	})
}
