package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	assert.Equal(t, "https://api.devnet.solana.com", c.RPC.URL)
	assert.Equal(t, "wss://api.devnet.solana.com", c.RPC.WSURL)
	assert.Equal(t, "confirmed", c.RPC.Commitment)
	assert.Equal(t, 10*time.Second, c.RPC.Timeout)
	assert.Equal(t, 3, c.RPC.MaxRetries)
	assert.Equal(t, "devnet", c.RPC.ExplorerCluster)
	assert.Equal(t, "dev-wallet.json", c.Wallet.Path)
	assert.Equal(t, "turbin3-wallet.json", c.Wallet.EnrollPath)
	assert.Equal(t, "ts", c.Enroll.Track)
	assert.Equal(t, 2*time.Second, c.Enroll.StepDelay)
	assert.Equal(t, "EUR", c.Price.Currency)
	assert.False(t, c.Price.Enabled)
	assert.Equal(t, 3, c.Price.Provider.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, c.Price.Provider.Backoff)
	assert.False(t, c.Metrics.Enabled)
	assert.Equal(t, ":9464", c.Exporter.ListenAddress)
	assert.Equal(t, 30*time.Second, c.Exporter.Interval)
	assert.Equal(t, 5*time.Minute, c.Exporter.PriceTTL)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "console", c.Log.Format)
}

func TestLoadEmptyPath(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", c.RPC.Commitment)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
rpc:
  url: http://127.0.0.1:8899
  ws_url: ws://127.0.0.1:8900
  commitment: finalized
  timeout: 3s
  max_retries: 5
  explorer_cluster: custom
wallet:
  path: /keys/dev.json
transfer:
  destination: GLtaTaYiTQrgz411iPJD79rsoee59HhEy18rtRdrhEUJ
enroll:
  github: octocat
  track: rs
  step_delay: 500ms
price:
  enabled: true
  currency: usd
metrics:
  enabled: true
  textfile_path: /tmp/solwallet.prom
exporter:
  listen_address: 127.0.0.1:9000
  addresses:
    - GLtaTaYiTQrgz411iPJD79rsoee59HhEy18rtRdrhEUJ
log:
  level: debug
  format: json
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8899", c.RPC.URL)
	assert.Equal(t, "ws://127.0.0.1:8900", c.RPC.WSURL)
	assert.Equal(t, "finalized", c.RPC.Commitment)
	assert.Equal(t, 3*time.Second, c.RPC.Timeout)
	assert.Equal(t, 5, c.RPC.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, c.RPC.Backoff, "unset fields keep defaults")
	assert.Equal(t, "custom", c.RPC.ExplorerCluster)
	assert.Equal(t, "/keys/dev.json", c.Wallet.Path)
	assert.Equal(t, "GLtaTaYiTQrgz411iPJD79rsoee59HhEy18rtRdrhEUJ", c.Transfer.Destination)
	assert.Equal(t, "octocat", c.Enroll.GitHub)
	assert.Equal(t, "rs", c.Enroll.Track)
	assert.Equal(t, 500*time.Millisecond, c.Enroll.StepDelay)
	assert.True(t, c.Price.Enabled)
	assert.Equal(t, "usd", c.Price.Currency)
	assert.Equal(t, "coingecko", c.Price.Provider.Type)
	assert.True(t, c.Metrics.Enabled)
	assert.Equal(t, "/tmp/solwallet.prom", c.Metrics.TextfilePath)
	assert.Equal(t, "127.0.0.1:9000", c.Exporter.ListenAddress)
	assert.Equal(t, []string{"GLtaTaYiTQrgz411iPJD79rsoee59HhEy18rtRdrhEUJ"}, c.Exporter.Addresses)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "json", c.Log.Format)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"commitment", "rpc:\n  commitment: max\n", "rpc.commitment"},
		{"track", "enroll:\n  track: go\n", "enroll.track"},
		{"retries", "rpc:\n  max_retries: -1\n", "rpc.max_retries"},
		{"interval", "exporter:\n  interval: -1s\n", "exporter.interval"},
		{"yaml", "rpc: [", "parse yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
