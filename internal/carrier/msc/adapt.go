package msc

import (
	"iter"
	"slices"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/schedule"
)

// Adapt normalizes MSC transactions. MSC does not guarantee leg order, so
// legs are re-sorted by departure before the schedule is built.
func Adapt(resp Response, filters schedule.Filters, scac schedule.SCAC, logger zerolog.Logger) iter.Seq[schedule.Schedule] {
	now := schedule.DefaultTimestamp()

	return carrier.Emit(resp.MSCSchedule.Transactions, filters, logger, func(tx Transaction) (schedule.Schedule, error) {
		legs, err := carrier.Legs(tx.Schedules, func(l Leg) (schedule.Leg, error) {
			return adaptLeg(l, now)
		})
		if err != nil {
			return schedule.Schedule{}, err
		}

		slices.SortStableFunc(legs, func(a, b schedule.Leg) int {
			return a.ETD.Compare(b.ETD)
		})

		return schedule.NewSchedule(schedule.ScheduleSpec{
			SCAC:        scac,
			TransitTime: tx.TransitTime,
			Legs:        legs,
		})
	})
}

func adaptLeg(l Leg, now schedule.DateTime) (schedule.Leg, error) {
	from, err := point(l.Departure)
	if err != nil {
		return schedule.Leg{}, err
	}
	to, err := point(l.Arrival)
	if err != nil {
		return schedule.Leg{}, err
	}

	m := l.TransportationMeans
	transport, err := schedule.NewTransportation(carrier.TransportType(m.TransportMode), m.VesselName, "", m.IMONumber)
	if err != nil {
		return schedule.Leg{}, err
	}

	etd := carrier.Time(l.Departure.Time, now)

	var cutoff *schedule.Cutoff
	if c := l.CutOffs; c != nil {
		cutoff = schedule.NewCutoff(
			carrier.OptionalTime(c.ContainerYard),
			carrier.OptionalTime(c.Documentation),
			carrier.OptionalTime(c.VGM),
			etd,
		)
	}

	return schedule.NewLeg(schedule.LegSpec{
		From:           from,
		To:             to,
		ETD:            etd,
		ETA:            carrier.Time(l.Arrival.Time, now),
		Transportation: transport,
		Voyage:         schedule.NewVoyage(m.VoyageNumber, ""),
		Service:        schedule.NewService(m.ServiceCode, m.ServiceName),
		Cutoff:         cutoff,
	})
}

func point(e Event) (schedule.Point, error) {
	var terminalName, terminalCode string
	if e.Terminal != nil {
		terminalName, terminalCode = e.Terminal.Name, e.Terminal.Code
	}
	return schedule.NewPoint(e.PortUNCode, e.PortName, terminalName, terminalCode)
}
