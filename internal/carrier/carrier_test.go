package carrier_test

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"slices"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/schedule"
)

type route struct {
	legs [][2]string
}

func buildRoute(r route) (schedule.Schedule, error) {
	legs, err := carrier.Legs(r.legs, func(l [2]string) (schedule.Leg, error) {
		from, err := schedule.NewPoint(l[0], "", "", "")
		if err != nil {
			return schedule.Leg{}, err
		}
		to, err := schedule.NewPoint(l[1], "", "", "")
		if err != nil {
			return schedule.Leg{}, err
		}
		vessel, _ := schedule.NewTransportation(schedule.TransportVessel, "", "", "")
		return schedule.NewLeg(schedule.LegSpec{
			From:           from,
			To:             to,
			ETD:            schedule.MustParseDateTime("2024-01-02T10:00:00"),
			ETA:            schedule.MustParseDateTime("2024-01-20T08:00:00"),
			Transportation: vessel,
		})
	})
	if err != nil {
		return schedule.Schedule{}, err
	}
	return schedule.NewSchedule(schedule.ScheduleSpec{SCAC: schedule.SCACCMDU, Legs: legs})
}

func collect(seq iter.Seq[schedule.Schedule]) []schedule.Schedule {
	return slices.Collect(seq)
}

func TestEmit_SkipsMalformedRecords(t *testing.T) {
	records := []route{
		{legs: [][2]string{{"HKHKG", "DEHAM"}}},
		{legs: [][2]string{{"HKHKG", "bad"}}},
		{legs: [][2]string{{"HKHKG", "SGSIN"}, {"SGSIN", "DEHAM"}}},
	}

	got := collect(carrier.Emit(records, schedule.Filters{}, zerolog.Nop(), buildRoute))
	require.Len(t, got, 2)
	assert.False(t, got[0].Transshipment)
	assert.True(t, got[1].Transshipment)
}

func TestEmit_AppliesFilters(t *testing.T) {
	records := []route{
		{legs: [][2]string{{"HKHKG", "SGSIN"}, {"SGSIN", "DEHAM"}}},
	}
	direct := true
	indirect := false

	assert.Empty(t, collect(carrier.Emit(records, schedule.Filters{DirectOnly: &direct}, zerolog.Nop(), buildRoute)))
	assert.Len(t, collect(carrier.Emit(records, schedule.Filters{DirectOnly: &indirect}, zerolog.Nop(), buildRoute)), 1)
}

func TestEmit_IsLazyAndStopsEarly(t *testing.T) {
	built := 0
	records := []route{
		{legs: [][2]string{{"HKHKG", "DEHAM"}}},
		{legs: [][2]string{{"HKHKG", "DEHAM"}}},
		{legs: [][2]string{{"HKHKG", "DEHAM"}}},
	}
	seq := carrier.Emit(records, schedule.Filters{}, zerolog.Nop(), func(r route) (schedule.Schedule, error) {
		built++
		return buildRoute(r)
	})
	assert.Zero(t, built)

	for range seq {
		break
	}
	assert.Equal(t, 1, built)
}

func TestLegs_FirstFailureAbortsRecord(t *testing.T) {
	boom := errors.New("boom")
	_, err := carrier.Legs([]int{1, 2}, func(n int) (schedule.Leg, error) {
		if n == 2 {
			return schedule.Leg{}, boom
		}
		return schedule.Leg{}, nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "leg 1")
}

func TestLegs_EmptyRoutingIsViolation(t *testing.T) {
	_, err := carrier.Legs([]int{}, func(int) (schedule.Leg, error) {
		t.Fatal("build called for an empty routing")
		return schedule.Leg{}, nil
	})

	var violation *schedule.SchemaViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "legs", violation.Field)
}

func TestEmit_SkipsRecordWithoutLegs(t *testing.T) {
	records := []route{
		{},
		{legs: [][2]string{{"HKHKG", "DEHAM"}}},
	}

	got := collect(carrier.Emit(records, schedule.Filters{}, zerolog.Nop(), buildRoute))
	require.Len(t, got, 1)
	assert.Equal(t, "DEHAM", got[0].PointTo)
}

func TestTime(t *testing.T) {
	fallback := schedule.MustParseDateTime("2024-05-05T05:05:05")

	assert.Equal(t, "2024-01-02T10:00:00", carrier.Time("2024-01-02T10:00:00+08:00", fallback).String())
	assert.Equal(t, fallback, carrier.Time("", fallback))
	assert.Equal(t, fallback, carrier.Time("soon", fallback))

	assert.Nil(t, carrier.OptionalTime(""))
	require.NotNil(t, carrier.OptionalTime("2024-01-01"))
	assert.Equal(t, "2024-01-01T00:00:00", carrier.OptionalTime("2024-01-01").String())
}

func TestTransportType(t *testing.T) {
	assert.Equal(t, schedule.TransportVessel, carrier.TransportType("VESSEL"))
	assert.Equal(t, schedule.TransportFeeder, carrier.TransportType("feeder"))
	assert.Equal(t, schedule.TransportRail, carrier.TransportType(" RCO "))
	assert.Equal(t, schedule.TransportTruckRail, carrier.TransportType("Truck / Rail"))
	assert.Equal(t, schedule.TransportVessel, carrier.TransportType(""))
	assert.Equal(t, schedule.TransportVessel, carrier.TransportType("HOVERCRAFT"))
}

func TestLookup(t *testing.T) {
	var doc any
	require.NoError(t, json.Unmarshal([]byte(`{
		"location": {
			"facility": {
				"name": "YANTIAN INTL CTN TERM",
				"facilityCodifications": [
					{"codificationType": "SMDG", "codification": "YICT"},
					{"codificationType": "UN", "codification": 12}
				]
			}
		}
	}`), &doc))

	assert.Equal(t, "YANTIAN INTL CTN TERM", carrier.LookupString(doc, "location", "facility", "name"))
	assert.Equal(t, "YICT", carrier.LookupString(doc, "location", "facility", "facilityCodifications", "0", "codification"))
	assert.Equal(t, "12", carrier.LookupString(doc, "location", "facility", "facilityCodifications", "1", "codification"))
	assert.Empty(t, carrier.LookupString(doc, "location", "facility", "facilityCodifications", "7", "codification"))
	assert.Empty(t, carrier.LookupString(doc, "location", "terminal", "name"))

	_, ok := carrier.Lookup(doc, "location", "facility", "name", "deeper")
	assert.False(t, ok)

	smdg, ok := carrier.Find(doc, func(v any) bool {
		return carrier.LookupString(v, "codificationType") == "SMDG"
	}, "location", "facility", "facilityCodifications")
	require.True(t, ok)
	assert.Equal(t, "YICT", carrier.LookupString(smdg, "codification"))
}

type stubCarrier struct {
	scac schedule.SCAC
}

func (s stubCarrier) SCAC() schedule.SCAC { return s.scac }
func (s stubCarrier) Name() string        { return "stub" }
func (s stubCarrier) Schedules(context.Context, schedule.Query) (iter.Seq[schedule.Schedule], error) {
	return func(func(schedule.Schedule) bool) {}, nil
}

func TestSet(t *testing.T) {
	set := carrier.NewSet(stubCarrier{schedule.SCACMAEU}, stubCarrier{schedule.SCACCMDU}, stubCarrier{schedule.SCACZIMU})

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []schedule.SCAC{schedule.SCACCMDU, schedule.SCACMAEU, schedule.SCACZIMU}, set.SCACs())

	selected, missing := set.Select([]schedule.SCAC{schedule.SCACMAEU, schedule.SCACEGLV})
	require.Len(t, selected, 1)
	assert.Equal(t, schedule.SCACMAEU, selected[0].SCAC())
	assert.Equal(t, []schedule.SCAC{schedule.SCACEGLV}, missing)
}

func TestCheckSCAC(t *testing.T) {
	assert.NoError(t, carrier.CheckSCAC("iqax", schedule.SCACOOLU, schedule.SCACCOSU, schedule.SCACOOLU))
	assert.ErrorIs(t, carrier.CheckSCAC("iqax", schedule.SCACMAEU, schedule.SCACCOSU, schedule.SCACOOLU), carrier.ErrUnsupportedSCAC)
}
