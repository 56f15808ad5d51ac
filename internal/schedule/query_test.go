package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulehub/p2p/internal/schedule"
)

func baseQuery() schedule.Query {
	return schedule.Query{
		Origin:      "HKHKG",
		Destination: "DEHAM",
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DateType:    schedule.DateTypeDeparture,
		SearchRange: schedule.DefaultSearchRange,
	}
}

func TestQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *schedule.Query)
		wantErr error
	}{
		{"valid", func(*schedule.Query) {}, nil},
		{"bad origin", func(q *schedule.Query) { q.Origin = "HK" }, schedule.ErrInvalidLocationCode},
		{"bad destination", func(q *schedule.Query) { q.Destination = "deham" }, schedule.ErrInvalidLocationCode},
		{"missing date", func(q *schedule.Query) { q.StartDate = time.Time{} }, schedule.ErrMissingStartDate},
		{"bad date type", func(q *schedule.Query) { q.DateType = "Sometime" }, schedule.ErrInvalidDateType},
		{"zero range", func(q *schedule.Query) { q.SearchRange = 0 }, schedule.ErrInvalidSearchRange},
		{"range too large", func(q *schedule.Query) { q.SearchRange = 91 }, schedule.ErrInvalidSearchRange},
		{"unknown scac", func(q *schedule.Query) { q.SCACs = []schedule.SCAC{"ABCD"} }, schedule.ErrUnknownSCAC},
		{"bad tsp", func(q *schedule.Query) { q.Filters.TransshipmentPort = "SG" }, schedule.ErrInvalidLocationCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := baseQuery()
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestQuery_SignatureIgnoresCarrierOrder(t *testing.T) {
	a := baseQuery()
	a.SCACs = []schedule.SCAC{schedule.SCACMAEU, schedule.SCACCMDU}
	b := baseQuery()
	b.SCACs = []schedule.SCAC{schedule.SCACCMDU, schedule.SCACMAEU, schedule.SCACCMDU}

	assert.Equal(t, a.Signature(), b.Signature())
	assert.Equal(t, a.ProductID(), b.ProductID())
}

func TestQuery_SignatureCoversFilters(t *testing.T) {
	a := baseQuery()
	b := baseQuery()
	b.Filters.DirectOnly = boolPtr(true)
	c := baseQuery()
	c.Filters.DirectOnly = boolPtr(false)

	assert.NotEqual(t, a.Signature(), b.Signature())
	assert.NotEqual(t, b.Signature(), c.Signature())
	assert.NotEqual(t, a.ProductID(), b.ProductID())
}

func TestQuery_Dates(t *testing.T) {
	q := baseQuery()
	assert.Equal(t, "2024-01-01", q.StartDateString())
	assert.Equal(t, "2024-01-29", q.EndDate().Format(schedule.DateLayout))
	assert.Equal(t, 4, q.SearchWeeks())

	q.SearchRange = 30
	assert.Equal(t, 5, q.SearchWeeks())
}

func TestParseDateType(t *testing.T) {
	dt, err := schedule.ParseDateType("")
	require.NoError(t, err)
	assert.Equal(t, schedule.DateTypeDeparture, dt)

	dt, err = schedule.ParseDateType("ARRIVAL")
	require.NoError(t, err)
	assert.Equal(t, schedule.DateTypeArrival, dt)
	assert.False(t, dt.IsDeparture())

	_, err = schedule.ParseDateType("eventually")
	assert.ErrorIs(t, err, schedule.ErrInvalidDateType)
}

func TestParseSCAC(t *testing.T) {
	s, err := schedule.ParseSCAC(" maeu ")
	require.NoError(t, err)
	assert.Equal(t, schedule.SCACMAEU, s)

	_, err = schedule.ParseSCAC("XXXX")
	assert.ErrorIs(t, err, schedule.ErrUnknownSCAC)

	assert.Len(t, schedule.SupportedSCACs(), 14)
	assert.Equal(t, "MAEU,ONEY", schedule.JoinSCACs([]schedule.SCAC{schedule.SCACMAEU, schedule.SCACONEY}))
}
