package schedule

// Filters are the optional caller constraints applied to every carrier's
// schedules. A nil DirectOnly and empty strings are unset.
type Filters struct {
	DirectOnly        *bool
	TransshipmentPort string
	Service           string
	VesselIMO         string
}

// Match applies the transshipment, transshipment port, service and vessel
// checks in that order.
func (f Filters) Match(s Schedule) bool {
	return f.matchTransshipment(s) &&
		f.matchTransshipmentPort(s) &&
		f.matchService(s) &&
		f.matchVessel(s)
}

func (f Filters) matchTransshipment(s Schedule) bool {
	if f.DirectOnly == nil {
		return true
	}
	return (len(s.Legs) > 1) != *f.DirectOnly
}

// A port only counts when cargo changes legs there, so direct sailings never
// match.
func (f Filters) matchTransshipmentPort(s Schedule) bool {
	if f.TransshipmentPort == "" {
		return true
	}
	for i, leg := range s.Legs {
		if i > 0 && leg.PointFrom.LocationCode == f.TransshipmentPort {
			return true
		}
		if i < len(s.Legs)-1 && leg.PointTo.LocationCode == f.TransshipmentPort {
			return true
		}
	}
	return false
}

func (f Filters) matchService(s Schedule) bool {
	if f.Service == "" {
		return true
	}
	for _, leg := range s.Legs {
		if leg.Services == nil {
			continue
		}
		if leg.Services.ServiceCode == f.Service || leg.Services.ServiceName == f.Service {
			return true
		}
	}
	return false
}

func (f Filters) matchVessel(s Schedule) bool {
	if f.VesselIMO == "" {
		return true
	}
	for _, leg := range s.Legs {
		if leg.Transportations.Reference == f.VesselIMO {
			return true
		}
	}
	return false
}
