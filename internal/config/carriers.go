package config

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"

	"github.com/schedulehub/p2p/internal/schedule"
)

// ErrNoPrivateKey is returned when a carrier needs a signing key that is
// not configured.
var ErrNoPrivateKey = errors.New("no private key configured")

// CarrierConfig holds the endpoint overrides and credentials of one SCAC.
// Which credential fields matter depends on the carrier family.
type CarrierConfig struct {
	// Enabled defaults to true for every listed carrier.
	Enabled *bool `yaml:"enabled"`

	BaseURL  string `yaml:"base_url"`
	TokenURL string `yaml:"token_url"`

	APIKey          string `yaml:"api_key"`
	SubscriptionKey string `yaml:"subscription_key"`
	ClientID        string `yaml:"client_id"`
	ClientSecret    string `yaml:"client_secret"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Scope           string `yaml:"scope"`
	Thumbprint      string `yaml:"thumbprint"`

	// PrivateKeyPath points at a PEM encoded RSA key; PrivateKey holds
	// the PEM inline and wins when both are set.
	PrivateKeyPath string `yaml:"private_key_path"`
	PrivateKey     string `yaml:"private_key"`

	// CacheTTL overrides the response cache TTL for this carrier.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// IsEnabled reports whether the carrier should be built.
func (c CarrierConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// LoadPrivateKey parses the configured RSA key.
func (c CarrierConfig) LoadPrivateKey() (*rsa.PrivateKey, error) {
	pem := []byte(c.PrivateKey)
	if len(pem) == 0 {
		if c.PrivateKeyPath == "" {
			return nil, ErrNoPrivateKey
		}
		var err error
		pem, err = os.ReadFile(c.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading private key: %w", err)
		}
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return key, nil
}

// Carriers maps SCACs to their configuration.
type Carriers map[schedule.SCAC]CarrierConfig

// Enabled returns the enabled SCACs in sorted order.
func (c Carriers) Enabled() []schedule.SCAC {
	var out []schedule.SCAC
	for _, scac := range slices.Sorted(maps.Keys(c)) {
		if c[scac].IsEnabled() {
			out = append(out, scac)
		}
	}
	return out
}

type carriersFile struct {
	Carriers map[string]CarrierConfig `yaml:"carriers"`
}

// LoadCarriers reads the carrier file at path, expanding ${VAR} references,
// and applies CARRIER_<SCAC>_<FIELD> environment overrides. With an empty
// path only the environment is consulted.
func LoadCarriers(path string) (Carriers, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading carriers config: %w", err)
		}
	}
	return ParseCarriers(data)
}

// ParseCarriers decodes carrier YAML and applies environment overrides.
func ParseCarriers(data []byte) (Carriers, error) {
	var file carriersFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return nil, fmt.Errorf("%w: decoding carriers config: %w", ErrInvalid, err)
	}

	out := make(Carriers, len(file.Carriers))
	for raw, cfg := range file.Carriers {
		scac, err := schedule.ParseSCAC(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: carriers config: %w", ErrInvalid, err)
		}
		out[scac] = cfg
	}

	for _, scac := range schedule.SupportedSCACs() {
		cfg, listed := out[scac]
		if applyEnv(scac, &cfg) || listed {
			out[scac] = cfg
		}
	}
	return out, nil
}

// applyEnv overlays CARRIER_<SCAC>_* variables and reports whether any
// was set.
func applyEnv(scac schedule.SCAC, cfg *CarrierConfig) bool {
	prefix := "CARRIER_" + string(scac) + "_"
	fields := map[string]*string{
		"BASE_URL":         &cfg.BaseURL,
		"TOKEN_URL":        &cfg.TokenURL,
		"API_KEY":          &cfg.APIKey,
		"SUBSCRIPTION_KEY": &cfg.SubscriptionKey,
		"CLIENT_ID":        &cfg.ClientID,
		"CLIENT_SECRET":    &cfg.ClientSecret,
		"USERNAME":         &cfg.Username,
		"PASSWORD":         &cfg.Password,
		"SCOPE":            &cfg.Scope,
		"THUMBPRINT":       &cfg.Thumbprint,
		"PRIVATE_KEY_PATH": &cfg.PrivateKeyPath,
		"PRIVATE_KEY":      &cfg.PrivateKey,
	}

	set := false
	for name, field := range fields {
		if v := os.Getenv(prefix + name); v != "" {
			*field = v
			set = true
		}
	}

	if v := os.Getenv(prefix + "ENABLED"); v != "" {
		enabled := strings.EqualFold(v, "true") || v == "1"
		cfg.Enabled = &enabled
		set = true
	}
	return set
}
