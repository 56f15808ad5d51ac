package resilience

import (
	"net"
	"net/http"
	"net/http/httptrace"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/schedulehub/p2p/internal/telemetry"
)

// PoolConfig holds configuration for the shared outbound connection pool.
type PoolConfig struct {
	// MaxIdleConns bounds idle connections across all hosts.
	// Default: 100
	MaxIdleConns int

	// MaxConnsPerHost bounds dialing, active and idle connections per host.
	// Default: 20
	MaxConnsPerHost int

	// IdleConnTimeout is the keep-alive TTL of an idle connection. Hosts are
	// resolved per dial, so it also bounds how long a DNS answer is used.
	// Default: 90 seconds
	IdleConnTimeout time.Duration

	// KeepAlive is the TCP keep-alive probe interval.
	// Default: 30 seconds
	KeepAlive time.Duration

	// DialTimeout bounds establishing a TCP connection.
	// Default: 10 seconds
	DialTimeout time.Duration

	// ExhaustionThreshold is how long a request may wait for a busy
	// connection before the pool grows.
	// Default: 250ms
	ExhaustionThreshold time.Duration

	// GrowthStep is added to the connection limits on each growth.
	// Default: 10
	GrowthStep int

	// MaxConnsCeiling caps MaxConnsPerHost growth.
	// Default: 200
	MaxConnsCeiling int

	Logger  zerolog.Logger
	Metrics *telemetry.CarrierMetrics
}

// DefaultPoolConfig returns sensible defaults for the shared pool.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:        100,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
		KeepAlive:           30 * time.Second,
		DialTimeout:         10 * time.Second,
		ExhaustionThreshold: 250 * time.Millisecond,
		GrowthStep:          10,
		MaxConnsCeiling:     200,
		Logger:              zerolog.Nop(),
	}
}

// Limits is a snapshot of the pool's current connection limits.
type Limits struct {
	MaxIdleConns    int `json:"maxIdleConns"`
	MaxConnsPerHost int `json:"maxConnsPerHost"`
	Growths         int `json:"growths"`
}

// Pool is an http.RoundTripper shared by every carrier client. Its limits
// only ever grow: when a request waits too long for a connection the
// transport is replaced by a clone with larger limits.
type Pool struct {
	cfg       PoolConfig
	transport atomic.Pointer[http.Transport]

	mu      sync.Mutex
	growths int
}

// NewPool creates a shared pool.
func NewPool(cfg PoolConfig) *Pool {
	d := DefaultPoolConfig()
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = d.MaxIdleConns
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = d.MaxConnsPerHost
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = d.IdleConnTimeout
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = d.KeepAlive
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = d.DialTimeout
	}
	if cfg.ExhaustionThreshold == 0 {
		cfg.ExhaustionThreshold = d.ExhaustionThreshold
	}
	if cfg.GrowthStep == 0 {
		cfg.GrowthStep = d.GrowthStep
	}
	if cfg.MaxConnsCeiling == 0 {
		cfg.MaxConnsCeiling = d.MaxConnsCeiling
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	p := &Pool{cfg: cfg}
	p.transport.Store(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	})
	return p
}

// RoundTrip implements http.RoundTripper.
func (p *Pool) RoundTrip(req *http.Request) (*http.Response, error) {
	var (
		requested atomic.Int64
		waited    atomic.Int64
	)
	trace := &httptrace.ClientTrace{
		GetConn: func(string) {
			requested.Store(time.Now().UnixNano())
		},
		GotConn: func(info httptrace.GotConnInfo) {
			// A reused connection after a long wait means every slot was busy.
			if info.Reused && requested.Load() != 0 {
				waited.Store(time.Now().UnixNano() - requested.Load())
			}
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	transport := p.transport.Load()
	resp, err := transport.RoundTrip(req)

	if time.Duration(waited.Load()) > p.cfg.ExhaustionThreshold {
		p.grow(transport)
	}
	return resp, err
}

// grow replaces seen with a clone carrying larger limits. Concurrent callers
// that observed the same transport grow it only once.
func (p *Pool) grow(seen *http.Transport) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := p.transport.Load()
	if current != seen || current.MaxConnsPerHost >= p.cfg.MaxConnsCeiling {
		return
	}

	next := current.Clone()
	next.MaxConnsPerHost = min(current.MaxConnsPerHost+p.cfg.GrowthStep, p.cfg.MaxConnsCeiling)
	next.MaxIdleConnsPerHost = next.MaxConnsPerHost
	next.MaxIdleConns = current.MaxIdleConns + p.cfg.GrowthStep
	p.transport.Store(next)
	p.growths++

	// In-flight requests finish on the old transport; only its idle
	// connections are dropped.
	current.CloseIdleConnections()

	p.cfg.Metrics.RecordPoolGrowth(next.MaxConnsPerHost)
	p.cfg.Logger.Warn().
		Int("max_conns_per_host", next.MaxConnsPerHost).
		Int("max_idle_conns", next.MaxIdleConns).
		Msg("connection pool exhausted, limits raised")
}

// Limits returns the current connection limits.
func (p *Pool) Limits() Limits {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.transport.Load()
	return Limits{
		MaxIdleConns:    t.MaxIdleConns,
		MaxConnsPerHost: t.MaxConnsPerHost,
		Growths:         p.growths,
	}
}

// CloseIdleConnections closes idle connections on the current transport.
func (p *Pool) CloseIdleConnections() {
	p.transport.Load().CloseIdleConnections()
}
