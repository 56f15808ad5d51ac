package iqax_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/carrier/iqax"
	"github.com/schedulehub/p2p/internal/fetch"
	"github.com/schedulehub/p2p/internal/provider/resilience"
	"github.com/schedulehub/p2p/internal/schedule"
)

const routeGroups = `{"routeGroupsList": [
	{"carrier": "OOLU", "route": [{
		"carrierScac": "OOLU",
		"por": {"location": {"unlocCode": "CNSHA", "locationName": "Shanghai"}, "etd": "2024-02-01T18:00:00+08:00"},
		"fnd": {"location": {"unlocCode": "USLAX", "locationName": "Los Angeles"}, "eta": "2024-02-15T07:00:00-08:00"},
		"leg": [{
			"legSeq": 1,
			"transportMode": "VESSEL",
			"fromPoint": {
				"location": {"unlocCode": "CNSHA", "locationName": "Shanghai", "facility": {"facilityCode": "CNSHAWGQ", "facilityName": "Waigaoqiao Phase IV"}},
				"etd": "2024-02-01T18:00:00+08:00",
				"defaultCutoff": "2024-01-31T12:00:00+08:00",
				"vgmCutoff": "2024-01-30T12:00:00+08:00"
			},
			"toPoint": {
				"location": {"unlocCode": "USLAX", "locationName": "Los Angeles"},
				"eta": "2024-02-15T07:00:00-08:00"
			},
			"service": {"code": "PCC1", "name": "Pacific China California 1"},
			"vessel": {"name": "OOCL HONG KONG", "IMO": "9776171"},
			"internalVoyageNumber": "089E",
			"externalVoyageNumber": "0QM9XE1MA"
		}]
	}]},
	{"carrier": "OOLU", "route": [{
		"leg": [{
			"transportMode": "VESSEL",
			"fromPoint": {"location": {"unlocCode": "SHANGHAI"}, "etd": "2024-02-03T00:00:00"},
			"toPoint": {"location": {"unlocCode": "USLAX"}, "eta": "2024-02-20T00:00:00"}
		}]
	}]}
]}`

func TestClient_Schedules(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Equal(t, "iqax-key", query.Get("apiKey"))
		assert.Equal(t, "OOLU", query.Get("scac"))
		assert.Equal(t, "2024-02-01", query.Get("departureFrom"))
		assert.Equal(t, "2024-02-15", query.Get("departureTo"))
		assert.Empty(t, query.Get("arrivalFrom"))
		_, _ = w.Write([]byte(routeGroups))
	}))
	defer server.Close()

	client, err := iqax.NewClient(iqax.ClientConfig{
		Options: carrier.Options{
			SCAC: schedule.SCACOOLU,
			Fetch: fetch.NewClient(fetch.ClientConfig{
				HTTPClient: resilience.NewClient(resilience.DefaultClientConfig("iqax")),
				Logger:     zerolog.Nop(),
			}),
		},
		APIKey:  "iqax-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	seq, err := client.Schedules(context.Background(), schedule.Query{
		Origin:      "CNSHA",
		Destination: "USLAX",
		StartDate:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		DateType:    schedule.DateTypeDeparture,
		SearchRange: 14,
	})
	require.NoError(t, err)

	got := slices.Collect(seq)
	require.Len(t, got, 1, "route with an invalid location code is skipped")

	s := got[0]
	assert.Equal(t, schedule.SCACOOLU, s.SCAC)
	assert.Equal(t, "2024-02-01T18:00:00", s.ETD.String())
	assert.Equal(t, "2024-02-15T07:00:00", s.ETA.String())
	assert.Equal(t, 13, s.TransitTime)

	leg := s.Legs[0]
	assert.Equal(t, "Waigaoqiao Phase IV", leg.PointFrom.TerminalName)
	assert.Equal(t, "CNSHAWGQ", leg.PointFrom.TerminalCode)
	assert.Empty(t, leg.PointTo.TerminalName)
	assert.Equal(t, "089E", leg.Voyages.InternalVoyage)
	assert.Equal(t, "0QM9XE1MA", leg.Voyages.ExternalVoyage)
	assert.Equal(t, "9776171", leg.Transportations.Reference)
	require.NotNil(t, leg.Cutoffs)
	assert.Nil(t, leg.Cutoffs.DocCutoffDate)
	assert.Equal(t, "2024-01-30T12:00:00", leg.Cutoffs.VgmCutoffDate.String())
}

func TestNewClient_RejectsForeignSCAC(t *testing.T) {
	_, err := iqax.NewClient(iqax.ClientConfig{Options: carrier.Options{SCAC: schedule.SCACEGLV}})
	require.ErrorIs(t, err, carrier.ErrUnsupportedSCAC)
}

func TestClient_ArrivalWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-02-15", r.URL.Query().Get("arrivalFrom"))
		assert.Equal(t, "2024-03-14", r.URL.Query().Get("arrivalTo"))
		assert.Equal(t, "COSU", r.URL.Query().Get("scac"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := iqax.NewClient(iqax.ClientConfig{
		Options: carrier.Options{SCAC: schedule.SCACCOSU, Logger: zerolog.Nop()},
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	seq, err := client.Schedules(context.Background(), schedule.Query{
		Origin:      "CNSHA",
		Destination: "USLAX",
		StartDate:   time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		DateType:    schedule.DateTypeArrival,
		SearchRange: 28,
	})
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(seq))
}
