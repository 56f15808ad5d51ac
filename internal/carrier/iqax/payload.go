package iqax

// Response is the IQAX route search response shared by COSCO and OOCL.
type Response struct {
	RouteGroupsList []RouteGroup `json:"routeGroupsList"`
}

type RouteGroup struct {
	Carrier string  `json:"carrier"`
	Route   []Route `json:"route"`
}

type Route struct {
	CarrierScac string     `json:"carrierScac"`
	TransitTime *int       `json:"transitTime"`
	POR         RoutePoint `json:"por"`
	FND         RoutePoint `json:"fnd"`
	Leg         []Leg      `json:"leg"`
}

type RoutePoint struct {
	Location Location `json:"location"`
	ETD      string   `json:"etd"`
	ETA      string   `json:"eta"`
}

type Location struct {
	LocationName string    `json:"locationName"`
	UNLocCode    string    `json:"unlocCode"`
	Facility     *Facility `json:"facility"`
}

type Facility struct {
	FacilityCode string `json:"facilityCode"`
	FacilityName string `json:"facilityName"`
}

type Leg struct {
	LegSeq               int      `json:"legSeq"`
	TransportMode        string   `json:"transportMode"`
	FromPoint            LegPoint `json:"fromPoint"`
	ToPoint              LegPoint `json:"toPoint"`
	Service              *Service `json:"service"`
	Vessel               *Vessel  `json:"vessel"`
	InternalVoyageNumber string   `json:"internalVoyageNumber"`
	ExternalVoyageNumber string   `json:"externalVoyageNumber"`
}

type LegPoint struct {
	Location      Location `json:"location"`
	ETD           string   `json:"etd"`
	ETA           string   `json:"eta"`
	DefaultCutoff string   `json:"defaultCutoff"`
	DocCutoff     string   `json:"docCutoff"`
	VGMCutoff     string   `json:"vgmCutoff"`
}

type Service struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Vessel struct {
	Name string `json:"name"`
	Code string `json:"code"`
	IMO  string `json:"IMO"`
}
