package msc

// Response is the point-to-point schedules response.
type Response struct {
	MSCSchedule struct {
		Transactions []Transaction `json:"Transactions"`
	} `json:"MSCSchedule"`
}

// Transaction is one routing.
type Transaction struct {
	TransitTime *int  `json:"TransitTime"`
	Schedules   []Leg `json:"Schedules"`
}

type Leg struct {
	Sequence            int                 `json:"Sequence"`
	Departure           Event               `json:"Departure"`
	Arrival             Event               `json:"Arrival"`
	TransportationMeans TransportationMeans `json:"TransportationMeans"`
	CutOffs             *CutOffs            `json:"CutOffs"`
}

type Event struct {
	PortName   string    `json:"PortName"`
	PortUNCode string    `json:"PortUNCode"`
	Terminal   *Terminal `json:"Terminal"`
	Time       string    `json:"Time"`
}

type Terminal struct {
	Name string `json:"Name"`
	Code string `json:"Code"`
}

type TransportationMeans struct {
	TransportMode string `json:"TransportMode"`
	VesselName    string `json:"VesselName"`
	IMONumber     string `json:"IMONumber"`
	VoyageNumber  string `json:"VoyageNumber"`
	ServiceCode   string `json:"ServiceCode"`
	ServiceName   string `json:"ServiceName"`
}

type CutOffs struct {
	ContainerYard string `json:"ContainerYard"`
	Documentation string `json:"Documentation"`
	VGM           string `json:"VGM"`
}
