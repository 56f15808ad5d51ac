package maersk

import "encoding/json"

// Response is the ocean products point-to-point response.
type Response struct {
	OceanProducts []OceanProduct `json:"oceanProducts"`
}

type OceanProduct struct {
	CarrierProductID          string              `json:"carrierProductId"`
	VesselOperatorCarrierCode string              `json:"vesselOperatorCarrierCode"`
	TransportSchedules        []TransportSchedule `json:"transportSchedules"`
}

// TransportSchedule is one routing. TransitTime is in minutes and arrives
// as either a number or a numeric string.
type TransportSchedule struct {
	DepartureDateTime string                      `json:"departureDateTime"`
	ArrivalDateTime   string                      `json:"arrivalDateTime"`
	TransitTime       json.Number                 `json:"transitTime"`
	Facilities        TransportScheduleFacilities `json:"facilities"`
	TransportLegs     []TransportLeg              `json:"transportLegs"`
}

type TransportScheduleFacilities struct {
	CollectionOrigin    Location `json:"collectionOrigin"`
	DeliveryDestination Location `json:"deliveryDestination"`
}

// Location is a Maersk facility. The site fields are set when the location is
// a terminal.
type Location struct {
	CityName           string `json:"cityName"`
	LocationName       string `json:"locationName"`
	LocationType       string `json:"locationType"`
	UNLocationCode     string `json:"UNLocationCode"`
	CityUNLocationCode string `json:"cityUNLocationCode"`
	CarrierSiteGeoID   string `json:"carrierSiteGeoID"`
}

type TransportLeg struct {
	DepartureDateTime string                 `json:"departureDateTime"`
	ArrivalDateTime   string                 `json:"arrivalDateTime"`
	Facilities        TransportLegFacilities `json:"facilities"`
	Transport         Transport              `json:"transport"`
}

type TransportLegFacilities struct {
	StartLocation Location `json:"startLocation"`
	EndLocation   Location `json:"endLocation"`
}

type Transport struct {
	TransportMode                string  `json:"transportMode"`
	Vessel                       *Vessel `json:"vessel"`
	CarrierDepartureVoyageNumber string  `json:"carrierDepartureVoyageNumber"`
	CarrierServiceCode           string  `json:"carrierServiceCode"`
	CarrierServiceName           string  `json:"carrierServiceName"`
}

type Vessel struct {
	VesselIMONumber   string `json:"vesselIMONumber"`
	CarrierVesselCode string `json:"carrierVesselCode"`
	VesselName        string `json:"vesselName"`
}
