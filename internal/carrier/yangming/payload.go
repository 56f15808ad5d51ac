package yangming

// SearchRequest is the POST body of a point-to-point search.
type SearchRequest struct {
	POL        string `json:"pol"`
	POD        string `json:"pod"`
	SearchDate string `json:"searchDate"`
	SearchType string `json:"searchType"`
	Weeks      int    `json:"weeks"`
}

// Response wraps the routes found for a search.
type Response struct {
	Data []Route `json:"data"`
}

type Route struct {
	POLCode     string `json:"polCode"`
	PODCode     string `json:"podCode"`
	ETD         string `json:"etd"`
	ETA         string `json:"eta"`
	TransitTime *int   `json:"transitTime"`
	Legs        []Leg  `json:"legs"`
}

type Leg struct {
	POLCode     string `json:"polCode"`
	POLName     string `json:"polName"`
	POLTerminal string `json:"polTerminal"`
	POLTmlCode  string `json:"polTmlCode"`
	PODCode     string `json:"podCode"`
	PODName     string `json:"podName"`
	PODTerminal string `json:"podTerminal"`
	PODTmlCode  string `json:"podTmlCode"`
	ETD         string `json:"etd"`
	ETA         string `json:"eta"`

	TransMode   string `json:"transMode"`
	VesselName  string `json:"vesselName"`
	IMO         string `json:"imoNo"`
	Voyage      string `json:"voyage"`
	ExtVoyage   string `json:"extVoyage"`
	ServiceCode string `json:"svcCode"`
	ServiceName string `json:"svcName"`

	CYCutoff  string `json:"cyCutoff"`
	DocCutoff string `json:"siCutoff"`
	VGMCutoff string `json:"vgmCutoff"`
}
