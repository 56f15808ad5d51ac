package zim_test

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
	"github.com/schedulehub/p2p/internal/carrier/zim"
	"github.com/schedulehub/p2p/internal/fetch"
	"github.com/schedulehub/p2p/internal/provider/resilience"
	"github.com/schedulehub/p2p/internal/schedule"
)

const routes = `{"response": {"routes": [{
	"departurePort": "HKHKG",
	"arrivalPort": "DEHAM",
	"departureDate": "2024-01-02T10:00:00",
	"arrivalDate": "2024-01-20T08:00:00",
	"transitTime": 18,
	"routeLegs": [
		{
			"leg": 1,
			"departurePort": "HKHKG", "departurePortName": "HONG KONG", "departureDate": "2024-01-02T10:00:00",
			"arrivalPort": "ILHFA", "arrivalPortName": "HAIFA", "arrivalDate": "2024-01-12T10:00:00",
			"vesselName": "ZIM SAMMY OFER", "lloydsCode": "9936745", "voyage": "3W",
			"line": "ZMP", "lineName": "ZIM Mediterranean Pendulum",
			"docClosingDate": "2023-12-30T12:00:00", "containerClosingDate": "2024-01-01T12:00:00", "vgmClosingDate": "2023-12-31T12:00:00"
		},
		{
			"leg": 2,
			"departurePort": "ILHFA", "departurePortName": "HAIFA", "departureDate": "2024-01-13T10:00:00",
			"arrivalPort": "DEHAM", "arrivalPortName": "HAMBURG", "arrivalTerminalName": "CTA", "arrivalTerminalCode": "HHLA-CTA", "arrivalDate": "2024-01-20T08:00:00",
			"vesselName": "ZIM ROTTERDAM", "lloydsCode": "9471214", "voyage": "12W", "consortSailingNumber": "FE412",
			"line": "ZEX"
		}
	]
}]}}`

func TestClient_Schedules(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "zim-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "Vessel Schedule", r.PostForm.Get("scope"))
		assert.Equal(t, "sub-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		_, _ = w.Write([]byte(`{"access_token":"zim-token","expires_in":3600}`))
	})
	mux.HandleFunc("/schedules", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer zim-token", r.Header.Get("Authorization"))
		assert.Equal(t, "ByArrival", r.URL.Query().Get("sortByDepartureOrArrival"))
		_, _ = w.Write([]byte(routes))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := zim.NewClient(zim.ClientConfig{
		Options: carrier.Options{
			SCAC: schedule.SCACZIMU,
			Fetch: fetch.NewClient(fetch.ClientConfig{
				HTTPClient: resilience.NewClient(resilience.DefaultClientConfig("zim")),
				Logger:     zerolog.Nop(),
			}),
		},
		SubscriptionKey: "sub-key",
		ClientID:        "zim-id",
		ClientSecret:    "zim-secret",
		BaseURL:         server.URL + "/schedules",
		TokenURL:        server.URL + "/token",
	})
	require.NoError(t, err)

	q := schedule.Query{
		Origin:      "HKHKG",
		Destination: "DEHAM",
		StartDate:   time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		DateType:    schedule.DateTypeArrival,
		SearchRange: 28,
	}
	seq, err := client.Schedules(context.Background(), q)
	require.NoError(t, err)

	got := slices.Collect(seq)
	require.Len(t, got, 1)

	s := got[0]
	require.Len(t, s.Legs, 2)
	assert.Equal(t, "9936745", s.Legs[0].Transportations.Reference)
	assert.Equal(t, "IMO", s.Legs[0].Transportations.ReferenceType)
	assert.Equal(t, "ZIM Mediterranean Pendulum", s.Legs[0].Services.ServiceName)
	require.NotNil(t, s.Legs[0].Cutoffs)
	assert.Equal(t, "2024-01-01T12:00:00", s.Legs[0].Cutoffs.CyCutoffDate.String())
	assert.Equal(t, "FE412", s.Legs[1].Voyages.ExternalVoyage)
	assert.Equal(t, "CTA", s.Legs[1].PointTo.TerminalName)
	assert.Nil(t, s.Legs[1].Cutoffs)
}

func TestAdapt_Filters(t *testing.T) {
	var resp zim.Response
	require.NoError(t, json.Unmarshal([]byte(routes), &resp))

	match := func(f schedule.Filters) int {
		return len(slices.Collect(zim.Adapt(resp, f, schedule.SCACZIMU, zerolog.Nop())))
	}
	assert.Equal(t, 1, match(schedule.Filters{TransshipmentPort: "ILHFA", Service: "ZEX", VesselIMO: "9471214"}))
	assert.Equal(t, 0, match(schedule.Filters{TransshipmentPort: "ILHFA", Service: "ZEX", VesselIMO: "1000000"}))
	assert.Equal(t, 0, match(schedule.Filters{Service: "ZXB"}))
}
