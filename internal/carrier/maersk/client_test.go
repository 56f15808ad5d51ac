package maersk_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulehub/p2p/internal/carrier"
	"github.com/schedulehub/p2p/internal/carrier/maersk"
	"github.com/schedulehub/p2p/internal/fetch"
	"github.com/schedulehub/p2p/internal/provider/resilience"
	"github.com/schedulehub/p2p/internal/schedule"
)

const oceanProducts = `{
	"oceanProducts": [{
		"carrierProductId": "12014859",
		"vesselOperatorCarrierCode": "MAEU",
		"transportSchedules": [{
			"departureDateTime": "2024-01-02T10:00:00",
			"arrivalDateTime": "2024-01-20T08:00:00",
			"transitTime": "25800",
			"facilities": {
				"collectionOrigin": {"cityName": "Hong Kong", "UNLocationCode": "HKHKG"},
				"deliveryDestination": {"cityName": "Hamburg", "UNLocationCode": "DEHAM"}
			},
			"transportLegs": [
				{
					"departureDateTime": "2024-01-02T10:00:00",
					"arrivalDateTime": "2024-01-08T02:00:00",
					"facilities": {
						"startLocation": {"cityName": "Hong Kong", "locationName": "Hong Kong International Terminals", "locationType": "TERMINAL", "UNLocationCode": "HKHKG", "carrierSiteGeoID": "0C3FQNQCIA7QH"},
						"endLocation": {"cityName": "Tanjung Pelepas", "UNLocationCode": "MYTPP"}
					},
					"transport": {
						"transportMode": "MVS",
						"vessel": {"vesselIMONumber": "9619907", "vesselName": "MAERSK EDINBURGH"},
						"carrierDepartureVoyageNumber": "402W",
						"carrierServiceCode": "AE7",
						"carrierServiceName": "AE7"
					}
				},
				{
					"departureDateTime": "2024-01-09T12:00:00",
					"arrivalDateTime": "2024-01-20T08:00:00",
					"facilities": {
						"startLocation": {"cityName": "Tanjung Pelepas", "UNLocationCode": "MYTPP"},
						"endLocation": {"cityName": "Hamburg", "UNLocationCode": "DEHAM"}
					},
					"transport": {
						"transportMode": "MVS",
						"vessel": {"vesselIMONumber": "9999999", "vesselName": ""},
						"carrierDepartureVoyageNumber": "",
						"carrierServiceCode": "AE1"
					}
				}
			]
		}]
	}]
}`

func newClient(t *testing.T, baseURL string) *maersk.Client {
	t.Helper()
	client, err := maersk.NewClient(maersk.ClientConfig{
		Options: carrier.Options{
			SCAC: schedule.SCACMAEU,
			Fetch: fetch.NewClient(fetch.ClientConfig{
				HTTPClient: resilience.NewClient(resilience.DefaultClientConfig("maersk")),
				Logger:     zerolog.Nop(),
			}),
			Logger: zerolog.Nop(),
		},
		ConsumerKey: "consumer",
		BaseURL:     baseURL,
	})
	require.NoError(t, err)
	return client
}

func TestClient_Schedules(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "consumer", r.Header.Get("Consumer-Key"))
		assert.Equal(t, "HKHKG", r.URL.Query().Get("collectionOriginUNLocationCode"))
		assert.Equal(t, "DEHAM", r.URL.Query().Get("deliveryDestinationUNLocationCode"))
		assert.Equal(t, "MAEU", r.URL.Query().Get("vesselOperatorCarrierCode"))
		assert.Equal(t, "A", r.URL.Query().Get("startDateType"))
		assert.Equal(t, "P2W", r.URL.Query().Get("dateRange"))
		_, _ = w.Write([]byte(oceanProducts))
	}))
	defer server.Close()

	q := schedule.Query{
		Origin:      "HKHKG",
		Destination: "DEHAM",
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DateType:    schedule.DateTypeArrival,
		SearchRange: 14,
	}
	seq, err := newClient(t, server.URL).Schedules(context.Background(), q)
	require.NoError(t, err)

	got := slices.Collect(seq)
	require.Len(t, got, 1)

	s := got[0]
	assert.Equal(t, 17, s.TransitTime, "25800 minutes")
	assert.True(t, s.Transshipment)
	require.Len(t, s.Legs, 2)

	first, second := s.Legs[0], s.Legs[1]
	assert.Equal(t, "Hong Kong International Terminals", first.PointFrom.TerminalName)
	assert.Equal(t, "0C3FQNQCIA7QH", first.PointFrom.TerminalCode)
	assert.Empty(t, first.PointTo.TerminalName)
	assert.Equal(t, "9619907", first.Transportations.Reference)
	assert.Equal(t, "402W", first.Voyages.InternalVoyage)

	assert.Equal(t, schedule.DefaultTransportName, second.Transportations.TransportName)
	assert.Equal(t, "1", second.Transportations.Reference)
	assert.Equal(t, schedule.DefaultInternalVoyage, second.Voyages.InternalVoyage)
}

func TestClient_Schedules_NotFoundYieldsNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	q := schedule.Query{Origin: "HKHKG", Destination: "DEHAM", StartDate: time.Now(), DateType: schedule.DateTypeDeparture, SearchRange: 28}
	seq, err := newClient(t, server.URL).Schedules(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(seq))
}

func TestAdapt_VesselFilter(t *testing.T) {
	var resp maersk.Response
	require.NoError(t, json.Unmarshal([]byte(oceanProducts), &resp))

	assert.Len(t, slices.Collect(maersk.Adapt(resp, schedule.Filters{VesselIMO: "9619907"}, schedule.SCACMAEU, zerolog.Nop())), 1)
	assert.Empty(t, slices.Collect(maersk.Adapt(resp, schedule.Filters{VesselIMO: "9999999"}, schedule.SCACMAEU, zerolog.Nop())))
	assert.Len(t, slices.Collect(maersk.Adapt(resp, schedule.Filters{Service: "AE1"}, schedule.SCACMAEU, zerolog.Nop())), 1)
}

func TestAdapt_NumericTransitTime(t *testing.T) {
	var resp maersk.Response
	require.NoError(t, json.Unmarshal([]byte(oceanProducts), &resp))
	resp.OceanProducts[0].TransportSchedules[0].TransitTime = json.Number("1440")

	got := slices.Collect(maersk.Adapt(resp, schedule.Filters{}, schedule.SCACMAEI, zerolog.Nop()))
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].TransitTime)
	assert.Equal(t, schedule.SCACMAEI, got[0].SCAC)
}
