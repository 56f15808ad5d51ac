// Package schedule defines the canonical point-to-point sailing schedule model
// that every carrier payload is normalized into.
package schedule

import (
	"regexp"
	"slices"
	"strings"
)

// Placeholders used when carriers omit voyage or vessel data.
const (
	DefaultInternalVoyage = "001"
	DefaultTransportName  = "TBN"
	ReferenceTypeIMO      = "IMO"
)

var locationCodePattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{3}$`)

// ValidLocationCode reports whether code is a UN/LOCODE.
func ValidLocationCode(code string) bool {
	return locationCodePattern.MatchString(code)
}

// Point is a port, terminal or inland place.
type Point struct {
	LocationName string `json:"locationName,omitempty"`
	LocationCode string `json:"locationCode"`
	TerminalName string `json:"terminalName,omitempty"`
	TerminalCode string `json:"terminalCode,omitempty"`
}

// NewPoint validates the location code. Terminal fields are only set when the
// carrier supplied a facility.
func NewPoint(code, name, terminalName, terminalCode string) (Point, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !ValidLocationCode(code) {
		return Point{}, violation("locationCode", code, "not a UN/LOCODE")
	}
	return Point{
		LocationName: strings.TrimSpace(name),
		LocationCode: code,
		TerminalName: strings.TrimSpace(terminalName),
		TerminalCode: strings.TrimSpace(terminalCode),
	}, nil
}

// TransportType is the mode of a leg.
type TransportType string

const (
	TransportVessel     TransportType = "Vessel"
	TransportBarge      TransportType = "Barge"
	TransportFeeder     TransportType = "Feeder"
	TransportTruck      TransportType = "Truck"
	TransportRail       TransportType = "Rail"
	TransportTruckRail  TransportType = "Truck / Rail"
	TransportRoad       TransportType = "Road"
	TransportRoadRail   TransportType = "Road / Rail"
	TransportIntermodal TransportType = "Intermodal"
)

// defaultReferences maps every transport type to the placeholder reference
// reported when the carrier has no vessel or vehicle identifier.
var defaultReferences = map[TransportType]string{
	TransportVessel:     "1",
	TransportBarge:      "2",
	TransportTruck:      "3",
	TransportRoad:       "3",
	TransportFeeder:     "9",
	TransportTruckRail:  "10",
	TransportRoadRail:   "10",
	TransportRail:       "11",
	TransportIntermodal: "12",
}

// Valid reports whether t is a known transport type.
func (t TransportType) Valid() bool {
	_, ok := defaultReferences[t]
	return ok
}

// DefaultReference returns the placeholder reference for t.
func (t TransportType) DefaultReference() string {
	return defaultReferences[t]
}

// Transportation describes the vessel or vehicle of a leg.
type Transportation struct {
	TransportType TransportType `json:"transportType"`
	TransportName string        `json:"transportName,omitempty"`
	ReferenceType string        `json:"referenceType,omitempty"`
	Reference     string        `json:"reference,omitempty"`
}

// NewTransportation builds a transportation whose reference pair is either
// complete or replaced by the placeholder for its transport type.
func NewTransportation(transportType TransportType, name, referenceType, reference string) (Transportation, error) {
	if !transportType.Valid() {
		return Transportation{}, violation("transportType", transportType, "unknown transport type")
	}

	name = strings.TrimSpace(name)
	reference = strings.TrimSpace(reference)
	referenceType = strings.TrimSpace(referenceType)

	if reference == "" {
		reference = transportType.DefaultReference()
		referenceType = ReferenceTypeIMO
		if name == "" {
			name = DefaultTransportName
		}
	} else if referenceType == "" {
		referenceType = ReferenceTypeIMO
	}

	return Transportation{
		TransportType: transportType,
		TransportName: name,
		ReferenceType: referenceType,
		Reference:     reference,
	}, nil
}

// Validate checks the reference pairing invariant.
func (t Transportation) Validate() error {
	if !t.TransportType.Valid() {
		return violation("transportType", t.TransportType, "unknown transport type")
	}
	if (t.ReferenceType == "") != (t.Reference == "") {
		return violation("reference", t.Reference, "referenceType and reference must be set together")
	}
	return nil
}

// Voyage holds the carrier and partner voyage numbers.
type Voyage struct {
	InternalVoyage string `json:"internalVoyage"`
	ExternalVoyage string `json:"externalVoyage,omitempty"`
}

// NewVoyage defaults the internal voyage for legs without one.
func NewVoyage(internal, external string) Voyage {
	internal = strings.TrimSpace(internal)
	if internal == "" {
		internal = DefaultInternalVoyage
	}
	return Voyage{InternalVoyage: internal, ExternalVoyage: strings.TrimSpace(external)}
}

// Service is a named sailing loop.
type Service struct {
	ServiceCode string `json:"serviceCode,omitempty"`
	ServiceName string `json:"serviceName,omitempty"`
}

// NewService returns nil when the carrier reported neither code nor name.
func NewService(code, name string) *Service {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" && name == "" {
		return nil
	}
	return &Service{ServiceCode: code, ServiceName: name}
}

// Cutoff holds the submission deadlines of a leg.
type Cutoff struct {
	CyCutoffDate  *DateTime `json:"cyCutoffDate,omitempty"`
	DocCutoffDate *DateTime `json:"docCutoffDate,omitempty"`
	VgmCutoffDate *DateTime `json:"vgmCutoffDate,omitempty"`
}

// NewCutoff returns nil when no deadline is known or when the container-yard
// cutoff falls after the leg departs.
func NewCutoff(cy, doc, vgm *DateTime, etd DateTime) *Cutoff {
	c := &Cutoff{CyCutoffDate: cy, DocCutoffDate: doc, VgmCutoffDate: vgm}
	if !c.consistentWith(etd) {
		return nil
	}
	return c
}

func (c *Cutoff) consistentWith(etd DateTime) bool {
	if c == nil {
		return false
	}
	if c.CyCutoffDate == nil && c.DocCutoffDate == nil && c.VgmCutoffDate == nil {
		return false
	}
	return c.CyCutoffDate == nil || !c.CyCutoffDate.After(etd)
}

// Leg is one transport hop.
type Leg struct {
	PointFrom       Point          `json:"pointFrom"`
	PointTo         Point          `json:"pointTo"`
	ETD             DateTime       `json:"etd"`
	ETA             DateTime       `json:"eta"`
	TransitTime     int            `json:"transitTime"`
	Transportations Transportation `json:"transportations"`
	Voyages         Voyage         `json:"voyages"`
	Services        *Service       `json:"services,omitempty"`
	Cutoffs         *Cutoff        `json:"cutoffs,omitempty"`
}

// LegSpec carries the raw pieces of a leg. TransitTime is the upstream value
// when the carrier reports one.
type LegSpec struct {
	From           Point
	To             Point
	ETD            DateTime
	ETA            DateTime
	TransitTime    *int
	Transportation Transportation
	Voyage         Voyage
	Service        *Service
	Cutoff         *Cutoff
}

// NewLeg enforces the leg invariants.
func NewLeg(spec LegSpec) (Leg, error) {
	if spec.ETA.Before(spec.ETD) {
		return Leg{}, violation("eta", spec.ETA, "eta before etd "+spec.ETD.String())
	}
	if err := spec.Transportation.Validate(); err != nil {
		return Leg{}, err
	}

	transit, err := transitDays(spec.TransitTime, spec.ETD, spec.ETA)
	if err != nil {
		return Leg{}, err
	}

	voyage := spec.Voyage
	if voyage.InternalVoyage == "" {
		voyage = NewVoyage("", voyage.ExternalVoyage)
	}

	cutoff := spec.Cutoff
	if !cutoff.consistentWith(spec.ETD) {
		cutoff = nil
	}

	leg := Leg{
		PointFrom:       spec.From,
		PointTo:         spec.To,
		ETD:             spec.ETD,
		ETA:             spec.ETA,
		TransitTime:     transit,
		Transportations: spec.Transportation,
		Voyages:         voyage,
		Services:        spec.Service,
		Cutoffs:         cutoff,
	}
	if err := leg.validatePoints(); err != nil {
		return Leg{}, err
	}
	return leg, nil
}

// Validate re-checks the leg invariants.
func (l Leg) Validate() error {
	if l.ETA.Before(l.ETD) {
		return violation("eta", l.ETA, "eta before etd "+l.ETD.String())
	}
	if l.TransitTime < 0 {
		return violation("transitTime", l.TransitTime, "negative transit time")
	}
	if l.Voyages.InternalVoyage == "" {
		return violation("internalVoyage", "", "missing internal voyage")
	}
	if l.Cutoffs != nil && !l.Cutoffs.consistentWith(l.ETD) {
		return violation("cutoffs", l.Cutoffs.CyCutoffDate, "cutoff after departure")
	}
	if err := l.Transportations.Validate(); err != nil {
		return err
	}
	return l.validatePoints()
}

func (l Leg) validatePoints() error {
	if !ValidLocationCode(l.PointFrom.LocationCode) {
		return violation("pointFrom", l.PointFrom.LocationCode, "not a UN/LOCODE")
	}
	if !ValidLocationCode(l.PointTo.LocationCode) {
		return violation("pointTo", l.PointTo.LocationCode, "not a UN/LOCODE")
	}
	return nil
}

// Schedule is one origin-to-destination offer from one carrier.
type Schedule struct {
	SCAC          SCAC     `json:"scac"`
	PointFrom     string   `json:"pointFrom"`
	PointTo       string   `json:"pointTo"`
	ETD           DateTime `json:"etd"`
	ETA           DateTime `json:"eta"`
	TransitTime   int      `json:"transitTime"`
	Transshipment bool     `json:"transshipment"`
	Legs          []Leg    `json:"legs"`
}

// ScheduleSpec carries the raw pieces of a schedule. Zero From, To, ETD and
// ETA fall back to the first and last legs.
type ScheduleSpec struct {
	SCAC        SCAC
	From        string
	To          string
	ETD         DateTime
	ETA         DateTime
	TransitTime *int
	Legs        []Leg
}

// NewSchedule enforces the schedule invariants. Legs keep the given order.
func NewSchedule(spec ScheduleSpec) (Schedule, error) {
	if !spec.SCAC.Valid() {
		return Schedule{}, violation("scac", spec.SCAC, "unknown carrier code")
	}
	if len(spec.Legs) == 0 {
		return Schedule{}, violation("legs", 0, "schedule has no legs")
	}

	first, last := spec.Legs[0], spec.Legs[len(spec.Legs)-1]

	from := spec.From
	if from == "" {
		from = first.PointFrom.LocationCode
	}
	to := spec.To
	if to == "" {
		to = last.PointTo.LocationCode
	}
	etd := spec.ETD
	if etd.IsZero() {
		etd = first.ETD
	}
	eta := spec.ETA
	if eta.IsZero() {
		eta = last.ETA
	}

	if eta.Before(etd) {
		return Schedule{}, violation("eta", eta, "eta before etd "+etd.String())
	}

	transit, err := transitDays(spec.TransitTime, etd, eta)
	if err != nil {
		return Schedule{}, err
	}

	return Schedule{
		SCAC:          spec.SCAC,
		PointFrom:     from,
		PointTo:       to,
		ETD:           etd,
		ETA:           eta,
		TransitTime:   transit,
		Transshipment: len(spec.Legs) > 1,
		Legs:          slices.Clone(spec.Legs),
	}, nil
}

// Validate re-checks the schedule and all of its legs.
func (s Schedule) Validate() error {
	if !s.SCAC.Valid() {
		return violation("scac", s.SCAC, "unknown carrier code")
	}
	if len(s.Legs) == 0 {
		return violation("legs", 0, "schedule has no legs")
	}
	if s.ETA.Before(s.ETD) {
		return violation("eta", s.ETA, "eta before etd "+s.ETD.String())
	}
	if s.TransitTime < 0 {
		return violation("transitTime", s.TransitTime, "negative transit time")
	}
	if s.Transshipment != (len(s.Legs) > 1) {
		return violation("transshipment", s.Transshipment, "does not match leg count")
	}
	if !ValidLocationCode(s.PointFrom) {
		return violation("pointFrom", s.PointFrom, "not a UN/LOCODE")
	}
	if !ValidLocationCode(s.PointTo) {
		return violation("pointTo", s.PointTo, "not a UN/LOCODE")
	}
	for _, leg := range s.Legs {
		if err := leg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func transitDays(upstream *int, etd, eta DateTime) (int, error) {
	if upstream == nil {
		return WholeDaysBetween(etd, eta), nil
	}
	if *upstream < 0 {
		return 0, violation("transitTime", *upstream, "negative transit time")
	}
	return *upstream, nil
}
