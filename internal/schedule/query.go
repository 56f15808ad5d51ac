package schedule

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Query validation errors.
var (
	ErrInvalidLocationCode = errors.New("invalid location code")
	ErrInvalidDateType     = errors.New("invalid date type")
	ErrInvalidSearchRange  = errors.New("invalid search range")
	ErrMissingStartDate    = errors.New("missing start date")
)

// Search range bounds in days.
const (
	DefaultSearchRange = 28
	MaxSearchRange     = 90
)

// DateType selects whether the start date bounds departures or arrivals.
type DateType string

const (
	DateTypeDeparture DateType = "Departure"
	DateTypeArrival   DateType = "Arrival"
)

// ParseDateType accepts the type case-insensitively.
func ParseDateType(s string) (DateType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "departure":
		return DateTypeDeparture, nil
	case "arrival":
		return DateTypeArrival, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDateType, s)
	}
}

// IsDeparture reports whether the start date bounds departures.
func (d DateType) IsDeparture() bool { return d != DateTypeArrival }

var productNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:schedulehub:p2p:product"))

// Query is one caller-facing schedule search.
type Query struct {
	Origin      string
	Destination string
	StartDate   time.Time
	DateType    DateType
	SearchRange int
	SCACs       []SCAC
	Filters     Filters
}

// Validate checks the query before it reaches any carrier.
func (q Query) Validate() error {
	if !ValidLocationCode(q.Origin) {
		return fmt.Errorf("%w: pointFrom %q", ErrInvalidLocationCode, q.Origin)
	}
	if !ValidLocationCode(q.Destination) {
		return fmt.Errorf("%w: pointTo %q", ErrInvalidLocationCode, q.Destination)
	}
	if q.StartDate.IsZero() {
		return ErrMissingStartDate
	}
	if q.DateType != DateTypeDeparture && q.DateType != DateTypeArrival {
		return fmt.Errorf("%w: %q", ErrInvalidDateType, q.DateType)
	}
	if q.SearchRange < 1 || q.SearchRange > MaxSearchRange {
		return fmt.Errorf("%w: %d days", ErrInvalidSearchRange, q.SearchRange)
	}
	for _, s := range q.SCACs {
		if !s.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownSCAC, s)
		}
	}
	if q.Filters.TransshipmentPort != "" && !ValidLocationCode(q.Filters.TransshipmentPort) {
		return fmt.Errorf("%w: tsp %q", ErrInvalidLocationCode, q.Filters.TransshipmentPort)
	}
	return nil
}

// StartDateString formats the start date for carrier requests.
func (q Query) StartDateString() string {
	return q.StartDate.Format(DateLayout)
}

// EndDate is the last day of the search window.
func (q Query) EndDate() time.Time {
	return q.StartDate.AddDate(0, 0, q.SearchRange)
}

// SearchWeeks rounds the range up to whole weeks for carriers that page by week.
func (q Query) SearchWeeks() int {
	return (q.SearchRange + 6) / 7
}

// Carriers returns the requested carriers, or fallback when none were named.
func (q Query) Carriers(fallback []SCAC) []SCAC {
	if len(q.SCACs) == 0 {
		return fallback
	}
	return q.SCACs
}

// Signature is a deterministic rendering of every field that affects the
// result. Identical searches share it regardless of carrier order.
func (q Query) Signature() string {
	scacs := make([]string, len(q.SCACs))
	for i, s := range q.SCACs {
		scacs[i] = string(s)
	}
	slices.Sort(scacs)
	scacs = slices.Compact(scacs)

	direct := ""
	if q.Filters.DirectOnly != nil {
		direct = strconv.FormatBool(*q.Filters.DirectOnly)
	}

	return strings.Join([]string{
		q.Origin,
		q.Destination,
		q.StartDateString(),
		string(q.DateType),
		strconv.Itoa(q.SearchRange),
		strings.Join(scacs, ","),
		direct,
		q.Filters.TransshipmentPort,
		q.Filters.Service,
		q.Filters.VesselIMO,
	}, "|")
}

// ProductID derives the content-addressed product identifier.
func (q Query) ProductID() uuid.UUID {
	return uuid.NewSHA1(productNamespace, []byte(q.Signature()))
}
