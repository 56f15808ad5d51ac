package hapag

// Route is one point-to-point route in the DCSA commercial schedules shape.
type Route struct {
	PlaceOfReceipt  Place    `json:"placeOfReceipt"`
	PlaceOfDelivery Place    `json:"placeOfDelivery"`
	TransitTime     *int     `json:"transitTime"`
	CutOffTimes     []CutOff `json:"cutOffTimes"`
	Legs            []Leg    `json:"legs"`
}

// Place is a location with its planned time.
type Place struct {
	FacilityTypeCode string   `json:"facilityTypeCode"`
	Location         Location `json:"location"`
	DateTime         string   `json:"dateTime"`
}

// Location carries a facility code only for terminals.
type Location struct {
	LocationName             string `json:"locationName"`
	UNLocationCode           string `json:"UNLocationCode"`
	FacilityCode             string `json:"facilityCode"`
	FacilityCodeListProvider string `json:"facilityCodeListProvider"`
}

// CutOff codes: DCO documentation, VCO verified gross mass, FCO FCL delivery.
type CutOff struct {
	CutOffDateTimeCode string `json:"cutOffDateTimeCode"`
	CutOffDateTime     string `json:"cutOffDateTime"`
}

type Leg struct {
	SequenceNumber int       `json:"sequenceNumber"`
	Transport      Transport `json:"transport"`
	Departure      Place     `json:"departure"`
	Arrival        Place     `json:"arrival"`
}

type Transport struct {
	ModeOfTransport                string           `json:"modeOfTransport"`
	Vessel                         *Vessel          `json:"vessel"`
	ServicePartners                []ServicePartner `json:"servicePartners"`
	UniversalServiceReference      string           `json:"universalServiceReference"`
	UniversalExportVoyageReference string           `json:"universalExportVoyageReference"`
}

type Vessel struct {
	VesselIMONumber string `json:"vesselIMONumber"`
	Name            string `json:"name"`
}

type ServicePartner struct {
	CarrierCode               string `json:"carrierCode"`
	CarrierServiceCode        string `json:"carrierServiceCode"`
	CarrierServiceName        string `json:"carrierServiceName"`
	CarrierExportVoyageNumber string `json:"carrierExportVoyageNumber"`
}
