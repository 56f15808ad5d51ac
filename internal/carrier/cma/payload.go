package cma

// Routing is one element of the routing finder response.
type Routing struct {
	ShippingCompany string          `json:"shippingCompany"`
	TransitTime     *int            `json:"transitTime"`
	RoutingDetails  []RoutingDetail `json:"routingDetails"`
}

// RoutingDetail is one leg.
type RoutingDetail struct {
	PointFrom      PointFrom      `json:"pointFrom"`
	PointTo        PointTo        `json:"pointTo"`
	Transportation Transportation `json:"transportation"`
	LegTransitTime *int           `json:"legTransitTime"`
}

// PointFrom is the departure end of a leg. Location metadata differs between
// inland places, ports and terminals, so it stays untyped.
type PointFrom struct {
	Location           map[string]any `json:"location"`
	DepartureDateLocal string         `json:"departureDateLocal"`
	Cutoff             *Cutoff        `json:"cutOff"`
}

// PointTo is the arrival end of a leg.
type PointTo struct {
	Location         map[string]any `json:"location"`
	ArrivalDateLocal string         `json:"arrivalDateLocal"`
}

type Cutoff struct {
	ShippingInstructionAcceptance Closing `json:"shippingInstructionAcceptance"`
	PortCutoff                    Closing `json:"portCutoff"`
	VGM                           Closing `json:"vgm"`
}

type Closing struct {
	ClosingDateLocal string `json:"closingDateLocal"`
}

type Transportation struct {
	MeanOfTransport string    `json:"meanOfTransport"`
	Vehicule        *Vehicule `json:"vehicule"`
	Voyage          *Voyage   `json:"voyage"`
}

type Vehicule struct {
	VehiculeType  string `json:"vehiculeType"`
	VehiculeName  string `json:"vehiculeName"`
	Reference     string `json:"reference"`
	ReferenceType string `json:"referenceType"`
}

type Voyage struct {
	VoyageReference        string   `json:"voyageReference"`
	PartnerVoyageReference string   `json:"partnerVoyageReference"`
	Service                *Service `json:"service"`
}

type Service struct {
	Code           string `json:"code"`
	CommercialName string `json:"commercialName"`
}
