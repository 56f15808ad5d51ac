package evergreen

// Route is one line of the Evergreen newline-delimited schedule stream.
type Route struct {
	Origin      Port   `json:"origin"`
	Destination Port   `json:"destination"`
	TransitDays *int   `json:"transitDays"`
	Legs        []Leg  `json:"legs"`
	RouteType   string `json:"routeType"`
}

type Port struct {
	UNLocode     string `json:"unLocode"`
	Name         string `json:"name"`
	TerminalName string `json:"terminalName"`
	TerminalCode string `json:"terminalCode"`
	Time         string `json:"time"`
}

type Leg struct {
	From Port `json:"from"`
	To   Port `json:"to"`

	Mode        string `json:"mode"`
	VesselName  string `json:"vesselName"`
	VesselIMO   string `json:"vesselImo"`
	Voyage      string `json:"voyage"`
	ServiceCode string `json:"serviceCode"`
	ServiceName string `json:"serviceName"`

	Cutoffs *Cutoffs `json:"cutoffs"`
}

type Cutoffs struct {
	CY  string `json:"cy"`
	Doc string `json:"doc"`
	VGM string `json:"vgm"`
}
