package one

// Response is the ONE point-to-point search result.
type Response struct {
	Routes []Route `json:"Routes"`
}

type Route struct {
	TransitDays *int  `json:"transitDays"`
	Legs        []Leg `json:"legs"`
}

// Leg is flat; terminal fields are empty for inland points.
type Leg struct {
	TransportType string `json:"transportType"`
	ServiceCode   string `json:"serviceCode"`
	ServiceName   string `json:"serviceName"`
	VesselName    string `json:"vesselName"`
	IMONumber     string `json:"imoNumber"`
	VoyageNumber  string `json:"voyageNumber"`
	TransitDays   *int   `json:"transitDays"`

	DepartureUnloc         string `json:"departureUnloc"`
	DeparturePortName      string `json:"departurePortName"`
	DepartureTerminalName  string `json:"departureTerminalName"`
	DepartureTerminalCode  string `json:"departureTerminalCode"`
	DepartureDateEstimated string `json:"departureDateEstimated"`

	ArrivalUnloc         string `json:"arrivalUnloc"`
	ArrivalPortName      string `json:"arrivalPortName"`
	ArrivalTerminalName  string `json:"arrivalTerminalName"`
	ArrivalTerminalCode  string `json:"arrivalTerminalCode"`
	ArrivalDateEstimated string `json:"arrivalDateEstimated"`

	CYCutoff  string `json:"cyCutoff"`
	DocCutoff string `json:"docCutoff"`
	VGMCutoff string `json:"vgmCutoff"`
}
