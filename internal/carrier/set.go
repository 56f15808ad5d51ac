package carrier

import (
	"slices"

	"github.com/schedulehub/p2p/internal/schedule"
)

// Set holds the configured carrier clients keyed by SCAC.
type Set struct {
	carriers map[schedule.SCAC]Carrier
}

// NewSet creates a set from the given carriers. A later carrier with the same
// SCAC replaces an earlier one.
func NewSet(carriers ...Carrier) *Set {
	s := &Set{carriers: make(map[schedule.SCAC]Carrier, len(carriers))}
	for _, c := range carriers {
		s.Add(c)
	}
	return s
}

// Add registers c under its SCAC.
func (s *Set) Add(c Carrier) {
	s.carriers[c.SCAC()] = c
}

// Get returns the carrier for scac.
func (s *Set) Get(scac schedule.SCAC) (Carrier, bool) {
	c, ok := s.carriers[scac]
	return c, ok
}

// SCACs returns the configured codes in enumeration order.
func (s *Set) SCACs() []schedule.SCAC {
	out := make([]schedule.SCAC, 0, len(s.carriers))
	for _, code := range schedule.SupportedSCACs() {
		if _, ok := s.carriers[code]; ok {
			out = append(out, code)
		}
	}
	return out
}

// Select returns the carriers for codes, skipping unconfigured ones, plus the
// codes that had no client.
func (s *Set) Select(codes []schedule.SCAC) (selected []Carrier, missing []schedule.SCAC) {
	for _, code := range codes {
		if c, ok := s.carriers[code]; ok {
			selected = append(selected, c)
			continue
		}
		if !slices.Contains(missing, code) {
			missing = append(missing, code)
		}
	}
	return selected, missing
}

// Len returns the number of configured carriers.
func (s *Set) Len() int {
	return len(s.carriers)
}
