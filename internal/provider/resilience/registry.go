package resilience

import (
	"slices"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// CarrierHealth is the health snapshot of one carrier client.
type CarrierHealth struct {
	// Name is the carrier client name.
	Name string

	// CircuitState is the current circuit breaker state.
	CircuitState gobreaker.State

	// Counts contains circuit breaker statistics.
	Counts gobreaker.Counts

	LastSuccessAt *time.Time
	LastFailureAt *time.Time

	// LastError is the most recent error message, if any.
	LastError string
}

// IsHealthy returns true if the circuit is closed.
func (h *CarrierHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded returns true if the circuit is half-open.
func (h *CarrierHealth) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// IsUnhealthy returns true if the circuit is open.
func (h *CarrierHealth) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// Registry tracks carrier clients and their last outcomes.
type Registry struct {
	mu       sync.RWMutex
	carriers map[string]*registeredCarrier
}

type registeredCarrier struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		carriers: make(map[string]*registeredCarrier),
	}
}

// Register adds a client under name, replacing any previous one.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carriers[name] = &registeredCarrier{client: client}
}

// Unregister removes a client.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carriers, name)
}

// RecordSuccess records a successful request.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.carriers[name]; ok {
		now := time.Now()
		c.lastSuccessAt = &now
	}
}

// RecordFailure records a failed request.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.carriers[name]; ok {
		now := time.Now()
		c.lastFailureAt = &now
		if err != nil {
			c.lastError = err.Error()
		}
	}
}

// GetHealth returns the health of one client, or nil if unknown.
func (r *Registry) GetHealth(name string) *CarrierHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carriers[name]
	if !ok {
		return nil
	}
	return c.snapshot(name)
}

// GetAllHealth returns the health of every client, sorted by name.
func (r *Registry) GetAllHealth() []*CarrierHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]*CarrierHealth, 0, len(r.carriers))
	for name, c := range r.carriers {
		health = append(health, c.snapshot(name))
	}
	slices.SortFunc(health, func(a, b *CarrierHealth) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return health
}

func (c *registeredCarrier) snapshot(name string) *CarrierHealth {
	return &CarrierHealth{
		Name:          name,
		CircuitState:  c.client.CircuitBreakerState(),
		Counts:        c.client.CircuitBreakerCounts(),
		LastSuccessAt: c.lastSuccessAt,
		LastFailureAt: c.lastFailureAt,
		LastError:     c.lastError,
	}
}

// Count returns the number of registered clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carriers)
}
