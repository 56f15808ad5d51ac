package config_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulehub/p2p/internal/config"
	"github.com/schedulehub/p2p/internal/schedule"
)

const carriersYAML = `
carriers:
  cmdu:
    api_key: ${TEST_CMA_KEY}
    cache_ttl: 10m
  HLCU:
    client_id: hapag-id
    client_secret: hapag-secret
    base_url: https://hapag.example/routes
  ZIMU:
    enabled: false
    subscription_key: zim-key
`

func TestParseCarriers(t *testing.T) {
	t.Setenv("TEST_CMA_KEY", "cma-secret")

	carriers, err := config.ParseCarriers([]byte(carriersYAML))
	require.NoError(t, err)

	cma := carriers[schedule.SCACCMDU]
	assert.Equal(t, "cma-secret", cma.APIKey)
	assert.Equal(t, 10*time.Minute, cma.CacheTTL)
	assert.True(t, cma.IsEnabled())

	hapag := carriers[schedule.SCACHLCU]
	assert.Equal(t, "hapag-id", hapag.ClientID)
	assert.Equal(t, "https://hapag.example/routes", hapag.BaseURL)

	assert.False(t, carriers[schedule.SCACZIMU].IsEnabled())
	assert.Equal(t, []schedule.SCAC{schedule.SCACCMDU, schedule.SCACHLCU}, carriers.Enabled())
}

func TestParseCarriers_EnvOverrides(t *testing.T) {
	t.Setenv("CARRIER_HLCU_CLIENT_SECRET", "from-env")
	t.Setenv("CARRIER_EGLV_API_KEY", "evergreen-key")
	t.Setenv("CARRIER_ZIMU_ENABLED", "true")

	carriers, err := config.ParseCarriers([]byte(carriersYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", carriers[schedule.SCACHLCU].ClientSecret)
	assert.Equal(t, "evergreen-key", carriers[schedule.SCACEGLV].APIKey)
	assert.True(t, carriers[schedule.SCACZIMU].IsEnabled())
	assert.Contains(t, carriers.Enabled(), schedule.SCACEGLV)
}

func TestParseCarriers_UnknownSCAC(t *testing.T) {
	_, err := config.ParseCarriers([]byte("carriers:\n  XXXX:\n    api_key: k\n"))
	require.ErrorIs(t, err, config.ErrInvalid)
	assert.ErrorIs(t, err, schedule.ErrUnknownSCAC)
}

func TestParseCarriers_Empty(t *testing.T) {
	carriers, err := config.ParseCarriers(nil)
	require.NoError(t, err)
	assert.Empty(t, carriers.Enabled())
}

func TestLoadCarriers_MissingFile(t *testing.T) {
	_, err := config.LoadCarriers(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestCarrierConfig_LoadPrivateKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	encoded := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	path := filepath.Join(t.TempDir(), "msc.pem")
	require.NoError(t, os.WriteFile(path, encoded, 0o600))

	fromPath, err := config.CarrierConfig{PrivateKeyPath: path}.LoadPrivateKey()
	require.NoError(t, err)
	assert.True(t, key.Equal(fromPath))

	inline, err := config.CarrierConfig{PrivateKey: string(encoded)}.LoadPrivateKey()
	require.NoError(t, err)
	assert.True(t, key.Equal(inline))

	_, err = config.CarrierConfig{}.LoadPrivateKey()
	assert.ErrorIs(t, err, config.ErrNoPrivateKey)

	_, err = config.CarrierConfig{PrivateKey: "not a key"}.LoadPrivateKey()
	assert.Error(t, err)
}
