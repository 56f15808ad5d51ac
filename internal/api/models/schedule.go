package models

// Query parameters of GET /v1/schedules.
const (
	ParamPointFrom     = "pointFrom"
	ParamPointTo       = "pointTo"
	ParamStartDate     = "startDate"
	ParamStartDateType = "startDateType"
	ParamSearchRange   = "searchRange"
	ParamSCAC          = "scac"
	ParamDirectOnly    = "directOnly"
	ParamTSP           = "tsp"
	ParamVesselIMO     = "vesselIMO"
	ParamService       = "service"
)

// Response headers of GET /v1/schedules.
const (
	HeaderScheduleCount  = "X-Schedule-Count"
	HeaderFailedCarriers = "X-Failed-Carriers"
	HeaderCache          = "X-Cache"
)

// Field error codes.
const (
	CodeRequired = "required"
	CodeInvalid  = "invalid"
	CodeRange    = "out_of_range"
	CodeUnknown  = "unknown"
)

// CarrierList is the body of GET /v1/carriers.
type CarrierList struct {
	Carriers []string `json:"carriers"`
}
