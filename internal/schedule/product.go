package schedule

import (
	"cmp"
	"fmt"

	"github.com/google/uuid"
)

// Product is the aggregate answer to one query.
type Product struct {
	ProductID     uuid.UUID  `json:"productId"`
	Origin        string     `json:"origin"`
	Destination   string     `json:"destination"`
	ScheduleCount int        `json:"scheduleCount"`
	Schedules     []Schedule `json:"schedules"`
}

// EmptyProduct is returned when no carrier produced a schedule.
type EmptyProduct struct {
	ProductID      uuid.UUID `json:"productId"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	Details        string    `json:"details"`
	FailedCarriers []SCAC    `json:"failedCarriers,omitempty"`
}

// NewEmptyProduct builds the not-found answer for q.
func NewEmptyProduct(q Query, failed []SCAC) EmptyProduct {
	return EmptyProduct{
		ProductID:      q.ProductID(),
		Origin:         q.Origin,
		Destination:    q.Destination,
		Details:        fmt.Sprintf("%s-%s schedule not found", q.Origin, q.Destination),
		FailedCarriers: failed,
	}
}

// CompareSchedules orders by departure, then transit time, then carrier code.
func CompareSchedules(a, b Schedule) int {
	if c := a.ETD.Compare(b.ETD); c != 0 {
		return c
	}
	if c := cmp.Compare(a.TransitTime, b.TransitTime); c != 0 {
		return c
	}
	return cmp.Compare(a.SCAC, b.SCAC)
}

// Validate is the single full pass over an assembled product.
func (p *Product) Validate() error {
	if p.ScheduleCount != len(p.Schedules) {
		return violation("scheduleCount", p.ScheduleCount, fmt.Sprintf("product holds %d schedules", len(p.Schedules)))
	}
	for i, s := range p.Schedules {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("schedule %d: %w", i, err)
		}
		if i > 0 && CompareSchedules(p.Schedules[i-1], s) > 0 {
			return violation("schedules", i, "not sorted by etd and transit time")
		}
	}
	return nil
}
