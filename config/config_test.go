package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
programs:
  sage:
    id: SAGE2HAwep459SNq61LHvjxPk4pLPEJLoMETef7f7EE
    types: [Fleet, FleetShips]
  rentals:
    id: SRSLY1fq9TJqCk1gNSE7VZL2bztvTn9wm4VR8u8jMKT
rpc:
  url: ${TEST_RPC_URL}
store:
  type: memory
snapshot:
  interval: 1h
http:
  address: ":8500"
`

func TestConfig_LoadYAML(t *testing.T) {
	require.NoError(t, os.Setenv("TEST_RPC_URL", "http://127.0.0.1:8899"))
	defer func() { _ = os.Unsetenv("TEST_RPC_URL") }()

	c := Default()
	require.NoError(t, c.LoadYAML([]byte(testYAML), true))
	require.NoError(t, c.Check())

	assert.Len(t, c.Programs, 2)
	assert.Equal(t, []string{"Fleet", "FleetShips"}, c.Programs["sage"].Types)
	assert.Equal(t, "http://127.0.0.1:8899", c.RPC.URL)
	assert.Equal(t, "confirmed", c.RPC.Commitment, "default kept")
	assert.Equal(t, "memory", c.Store.Type)
	assert.Equal(t, time.Hour, c.Snapshot.Interval)
	assert.Equal(t, 10, c.Snapshot.KeepLast)
	assert.Contains(t, c.String(), "SAGE2HAwep459SNq61LHvjxPk4pLPEJLoMETef7f7EE")
}

func TestConfig_LoadYAML_strict(t *testing.T) {
	c := Default()
	err := c.LoadYAML([]byte("unknown_key: 1\n"), false)
	assert.Error(t, err)
}

func TestConfig_Check(t *testing.T) {
	valid := func() Config {
		c := Default()
		c.Programs = map[string]Program{
			"sage": {ID: "SAGE2HAwep459SNq61LHvjxPk4pLPEJLoMETef7f7EE"},
		}
		return c
	}
	require.NoError(t, valid().Check())

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"no-programs", func(c *Config) { c.Programs = nil }},
		{"bad-program-id", func(c *Config) { c.Programs["sage"] = Program{ID: "nope"} }},
		{"empty-program-id", func(c *Config) { c.Programs["sage"] = Program{} }},
		{"commitment", func(c *Config) { c.RPC.Commitment = "maybe" }},
		{"concurrency", func(c *Config) { c.RPC.FetchConcurrency = 0 }},
		{"reconnect-delay", func(c *Config) { c.RPC.ReconnectDelay = -time.Second }},
		{"store-type", func(c *Config) { c.Store.Type = "" }},
		{"sqlite-dsn", func(c *Config) { c.Store.DSN = "" }},
		{"snapshot-interval", func(c *Config) { c.Snapshot.Interval = time.Second }},
		{"http-address", func(c *Config) { c.HTTP.Address = "8000" }},
		{"log-level", func(c *Config) { c.Log.Level = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(&c)
			assert.Error(t, c.Check())
		})
	}
}
