package zim

// Response is the ZIM point-to-point schedule response.
type Response struct {
	Response struct {
		Routes []Route `json:"routes"`
	} `json:"response"`
}

type Route struct {
	DeparturePort string     `json:"departurePort"`
	ArrivalPort   string     `json:"arrivalPort"`
	DepartureDate string     `json:"departureDate"`
	ArrivalDate   string     `json:"arrivalDate"`
	TransitTime   *int       `json:"transitTime"`
	RouteLegs     []RouteLeg `json:"routeLegs"`
}

type RouteLeg struct {
	Leg int `json:"leg"`

	DeparturePort         string `json:"departurePort"`
	DeparturePortName     string `json:"departurePortName"`
	DepartureTerminalName string `json:"departureTerminalName"`
	DepartureTerminalCode string `json:"departureTerminalCode"`
	DepartureDate         string `json:"departureDate"`

	ArrivalPort         string `json:"arrivalPort"`
	ArrivalPortName     string `json:"arrivalPortName"`
	ArrivalTerminalName string `json:"arrivalTerminalName"`
	ArrivalTerminalCode string `json:"arrivalTerminalCode"`
	ArrivalDate         string `json:"arrivalDate"`

	VesselName           string `json:"vesselName"`
	LloydsCode           string `json:"lloydsCode"`
	Voyage               string `json:"voyage"`
	ConsortSailingNumber string `json:"consortSailingNumber"`
	Line                 string `json:"line"`
	LineName             string `json:"lineName"`
	TransportMode        string `json:"transportMode"`

	DocClosingDate       string `json:"docClosingDate"`
	ContainerClosingDate string `json:"containerClosingDate"`
	VGMClosingDate       string `json:"vgmClosingDate"`
}
