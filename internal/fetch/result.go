// Package fetch performs outbound carrier calls and returns fully assembled,
// decoded payloads. It owns response caching, Content-Range pagination,
// NDJSON streams and access tokens. It never retries: upstream trouble comes
// back as an Absent result and the orchestrator decides what to do.
package fetch

import (
	"context"
	"errors"
	"net"

	"github.com/schedulehub/p2p/internal/provider/resilience"
)

// Fetch errors.
var (
	// ErrAbsent marks a carrier call that produced no payload because of a
	// transient upstream condition. Carriers wrap it so the orchestrator retries.
	ErrAbsent = errors.New("upstream payload absent")

	// ErrDecode marks a successful response whose body could not be decoded.
	ErrDecode = errors.New("decoding upstream payload")

	// ErrUnexpectedStatus marks a 4xx response other than 404.
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

// Outcome tags how a Result was produced.
type Outcome int

const (
	// OutcomeFetched means the payload came from the network.
	OutcomeFetched Outcome = iota
	// OutcomeCached means the payload came from the response cache.
	OutcomeCached
	// OutcomeAbsent means the upstream failed transiently (5xx, 429 or
	// transport error) and Value is the zero value.
	OutcomeAbsent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFetched:
		return "fetched"
	case OutcomeCached:
		return "cached"
	case OutcomeAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// Result is a tagged fetch result.
type Result[T any] struct {
	Value      T
	Outcome    Outcome
	StatusCode int
}

// Absent reports whether the upstream produced no payload.
func (r Result[T]) Absent() bool {
	return r.Outcome == OutcomeAbsent
}

// Err returns ErrAbsent for absent results and nil otherwise, for carriers
// that hand absence to the orchestrator as a retryable error.
func (r Result[T]) Err() error {
	if r.Absent() {
		return ErrAbsent
	}
	return nil
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAbsent) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, resilience.ErrCircuitOpen) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
