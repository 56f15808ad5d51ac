package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/api/middleware"
	"github.com/schedulehub/p2p/internal/api/models"
	"github.com/schedulehub/p2p/internal/api/response"
	"github.com/schedulehub/p2p/internal/schedule"
	"github.com/schedulehub/p2p/internal/search"
)

// Searcher answers schedule queries.
type Searcher interface {
	Search(ctx context.Context, q schedule.Query) (*search.Response, error)
	Carriers() []schedule.SCAC
}

// ScheduleHandler serves point-to-point schedule searches.
type ScheduleHandler struct {
	searcher Searcher
	logger   zerolog.Logger
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(searcher Searcher, logger zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{searcher: searcher, logger: logger}
}

// Search handles GET /v1/schedules. Partial and empty results are still 200;
// carriers that failed are listed in X-Failed-Carriers.
func (h *ScheduleHandler) Search(w http.ResponseWriter, r *http.Request) {
	q, fieldErrors := ParseQuery(r)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid schedule search", fieldErrors)
		return
	}

	resp, err := h.searcher.Search(r.Context(), q)
	switch {
	case errors.Is(err, search.ErrInvalidQuery):
		response.BadRequest(w, r, err.Error(), nil)
		return
	case err != nil:
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("origin", q.Origin).
			Str("destination", q.Destination).
			Msg("schedule search failed")
		response.InternalError(w, r, "the schedule product could not be assembled")
		return
	}

	header := w.Header()
	header.Set(models.HeaderScheduleCount, strconv.Itoa(resp.Count))
	if len(resp.FailedCarriers) > 0 {
		header.Set(models.HeaderFailedCarriers, schedule.JoinSCACs(resp.FailedCarriers))
	}
	if resp.Cached {
		header.Set(models.HeaderCache, "HIT")
	} else {
		header.Set(models.HeaderCache, "MISS")
	}

	response.RawJSON(w, r, http.StatusOK, resp.Body)
}

// Carriers handles GET /v1/carriers.
func (h *ScheduleHandler) Carriers(w http.ResponseWriter, r *http.Request) {
	scacs := h.searcher.Carriers()
	list := models.CarrierList{Carriers: make([]string, len(scacs))}
	for i, s := range scacs {
		list.Carriers[i] = s.String()
	}
	response.JSON(w, r, http.StatusOK, list)
}

// ParseQuery reads the search parameters from the URL. Every invalid
// parameter is reported, not only the first.
func ParseQuery(r *http.Request) (schedule.Query, []models.FieldError) {
	values := r.URL.Query()
	var (
		q    schedule.Query
		errs []models.FieldError
	)
	fail := func(field, code, format string, args ...any) {
		errs = append(errs, models.FieldError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	location := func(field string, required bool) string {
		v := strings.ToUpper(strings.TrimSpace(values.Get(field)))
		switch {
		case v == "" && required:
			fail(field, models.CodeRequired, "is required")
		case v != "" && !schedule.ValidLocationCode(v):
			fail(field, models.CodeInvalid, "must be a 5 character UN/LOCODE, got %q", v)
		}
		return v
	}
	q.Origin = location(models.ParamPointFrom, true)
	q.Destination = location(models.ParamPointTo, true)
	q.Filters.TransshipmentPort = location(models.ParamTSP, false)

	if raw := strings.TrimSpace(values.Get(models.ParamStartDate)); raw == "" {
		fail(models.ParamStartDate, models.CodeRequired, "is required")
	} else if d, err := time.Parse(schedule.DateLayout, raw); err != nil {
		fail(models.ParamStartDate, models.CodeInvalid, "must be a date in YYYY-MM-DD form")
	} else {
		q.StartDate = d
	}

	dateType, err := schedule.ParseDateType(values.Get(models.ParamStartDateType))
	if err != nil {
		fail(models.ParamStartDateType, models.CodeInvalid, "must be Departure or Arrival")
	}
	q.DateType = dateType

	q.SearchRange = schedule.DefaultSearchRange
	if raw := strings.TrimSpace(values.Get(models.ParamSearchRange)); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			fail(models.ParamSearchRange, models.CodeInvalid, "must be a whole number of days")
		case n < 1 || n > schedule.MaxSearchRange:
			fail(models.ParamSearchRange, models.CodeRange, "must be between 1 and %d", schedule.MaxSearchRange)
		default:
			q.SearchRange = n
		}
	}

	for _, raw := range values[models.ParamSCAC] {
		for _, code := range strings.Split(raw, ",") {
			if strings.TrimSpace(code) == "" {
				continue
			}
			scac, err := schedule.ParseSCAC(code)
			if err != nil {
				fail(models.ParamSCAC, models.CodeUnknown, "unsupported carrier %q", strings.TrimSpace(code))
				continue
			}
			q.SCACs = append(q.SCACs, scac)
		}
	}

	if raw := strings.TrimSpace(values.Get(models.ParamDirectOnly)); raw != "" {
		direct, err := strconv.ParseBool(raw)
		if err != nil {
			fail(models.ParamDirectOnly, models.CodeInvalid, "must be true or false")
		} else {
			q.Filters.DirectOnly = &direct
		}
	}

	if imo := strings.TrimSpace(values.Get(models.ParamVesselIMO)); imo != "" {
		if !validIMO(imo) {
			fail(models.ParamVesselIMO, models.CodeInvalid, "must be a 7 digit IMO number")
		}
		q.Filters.VesselIMO = imo
	}
	q.Filters.Service = strings.TrimSpace(values.Get(models.ParamService))

	return q, errs
}

func validIMO(s string) bool {
	if len(s) != 7 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
