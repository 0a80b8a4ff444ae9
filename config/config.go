// Package config implements the YAML config file parser
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/sagestream/sagestream/config/logger"
	"github.com/sagestream/sagestream/status/healthtracker"
	"github.com/sagestream/sagestream/status/starttracker"
)

// DefaultFetchTimeout is the default timeout for a single bulk account fetch.
// Large programs can return hundreds of MB of account data.
const DefaultFetchTimeout = 10 * time.Minute

// Config is the config root object
type Config struct {
	Programs map[string]Program `yaml:"programs"`
	RPC      RPC                `yaml:"rpc"`
	Store    Store              `yaml:"store"`
	Storage  Storage            `yaml:"storage"`
	Snapshot Snapshot           `yaml:"snapshot"`
	HTTP     HTTP               `yaml:"http"`
	Log      logger.Config      `yaml:"log"`
	Health   Health             `yaml:"health"`

	// Set to current version by main
	Version string `yaml:"-"`
}

// Program configures a program whose accounts are ingested
type Program struct {
	ID string `yaml:"id"` // base58 program address
	// Types restricts the snapshot fetch to these account type names.
	// Empty means all types known for the program.
	Types []string `yaml:"types"`
	// Disabled programs are not watched
	Disabled bool `yaml:"disabled"`
}

// RPC configures the ledger node endpoints
type RPC struct {
	URL              string        `yaml:"url"`               // JSON-RPC HTTP endpoint
	WebsocketURL     string        `yaml:"websocket_url"`     // PubSub endpoint, derived from url if empty
	Commitment       string        `yaml:"commitment"`        // processed, confirmed or finalized
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`     // per bulk fetch
	FetchConcurrency int           `yaml:"fetch_concurrency"` // concurrent bulk fetches
	// ReconnectDelay is the wait before subscribing again after a stream
	// ended or failed. 0 makes the watch command exit instead.
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

// Store configures the projection store
type Store struct {
	Type string `yaml:"type"` // "sqlite" or "memory"
	DSN  string `yaml:"dsn"`  // sqlite database path or DSN
	// RawAccounts also stores every received account in raw form
	RawAccounts bool `yaml:"raw_accounts"`
}

// Storage configures the simpleblob backend used for snapshot archives
type Storage struct {
	Type    string                 `yaml:"type"`
	Options map[string]interface{} `yaml:"options"` // backend specific
}

// Snapshot configures the creation and retention of snapshot archives
type Snapshot struct {
	Interval time.Duration `yaml:"interval"` // 0 disables periodic snapshots during watch
	KeepLast int           `yaml:"keep_last"` // 0 disables cleaning
	// MustKeepInterval protects new archives from cleaning for this long
	MustKeepInterval time.Duration `yaml:"must_keep_interval"`
	// CleanupInterval is the interval between cleaner runs during watch
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	// RestoreOnStart restores the newest archive into the store before
	// the live subscription starts
	RestoreOnStart bool `yaml:"restore_on_start"`
}

// HTTP configures the HTTP server with Prometheus metrics and status page
type HTTP struct {
	Address string `yaml:"address"` // Address like ":8000"
}

// Health configures the healthz checks
type Health struct {
	StoreFailures healthtracker.HealthConfig `yaml:"store_failures"`
	StartPhase    starttracker.StartConfig   `yaml:"start_phase"`
}

// Check validates a Config instance
func (c Config) Check() error {
	if err := c.Log.Check(); err != nil {
		return err
	}
	if len(c.Programs) < 1 {
		return fmt.Errorf("no programs configured")
	}
	for name, p := range c.Programs {
		prefix := fmt.Sprintf("program %q", name)
		if p.ID == "" {
			return fmt.Errorf("%s: no id configured", prefix)
		}
		if b, err := base58.Decode(p.ID); err != nil || len(b) != 32 {
			return fmt.Errorf("%s: invalid program id %q", prefix, p.ID)
		}
	}
	if c.RPC.URL != "" {
		if _, err := url.Parse(c.RPC.URL); err != nil {
			return fmt.Errorf("rpc.url: %v", err)
		}
	}
	if c.RPC.FetchConcurrency < 1 {
		return fmt.Errorf("rpc.fetch_concurrency: must be at least 1")
	}
	if c.RPC.ReconnectDelay < 0 {
		return fmt.Errorf("rpc.reconnect_delay: cannot be negative")
	}
	switch c.RPC.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("rpc.commitment: must be one of processed, confirmed, finalized")
	}
	if c.Store.Type == "" {
		return fmt.Errorf("store.type: not configured")
	}
	if c.Store.Type == "sqlite" && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn: required for sqlite")
	}
	if c.Snapshot.Interval != 0 && c.Snapshot.Interval < time.Minute {
		return fmt.Errorf("snapshot.interval: too short interval")
	}
	if c.Snapshot.KeepLast < 0 {
		return fmt.Errorf("snapshot.keep_last: cannot be negative")
	}
	if c.Snapshot.KeepLast > 0 && c.Snapshot.CleanupInterval < time.Second {
		return fmt.Errorf("snapshot.cleanup_interval: too short interval")
	}
	if c.HTTP.Address != "" {
		if _, _, err := net.SplitHostPort(c.HTTP.Address); err != nil {
			return fmt.Errorf("http.address: %v", err)
		}
	}
	return nil
}

// String returns the config as a YAML string
func (c Config) String() string {
	y, err := yaml.Marshal(c)
	if err != nil {
		logrus.Panicf("YAML marshal of config failed: %v", err) // Should never happen
	}
	return string(y)
}

// LoadYAML loads config from YAML. Any set value overwrites any existing value,
// but omitted keys are untouched.
func (c *Config) LoadYAML(yamlContents []byte, expandEnv bool) error {
	if expandEnv {
		yamlContents = []byte(os.ExpandEnv(string(yamlContents)))
	}
	return yaml.UnmarshalStrict(yamlContents, c)
}

// LoadYAMLFile loads config from a YAML file. Any set value overwrites any existing value,
// but omitted keys are untouched.
func (c *Config) LoadYAMLFile(fpath string, expandEnv bool) error {
	contents, err := os.ReadFile(fpath)
	if err != nil {
		return errors.Wrap(err, "open yaml file")
	}
	return c.LoadYAML(contents, expandEnv)
}

// Default returns a Config with default settings
func Default() Config {
	return Config{
		RPC: RPC{
			URL:              "https://api.mainnet-beta.solana.com",
			Commitment:       "confirmed",
			FetchTimeout:     DefaultFetchTimeout,
			FetchConcurrency: 2,
			ReconnectDelay:   5 * time.Second,
		},
		Store: Store{
			Type: "sqlite",
			DSN:  "sagestream.db",
		},
		Storage: Storage{
			Type: "fs",
			Options: map[string]interface{}{
				"root_path": "snapshots",
			},
		},
		Snapshot: Snapshot{
			KeepLast:         10,
			MustKeepInterval: 10 * time.Minute,
			CleanupInterval:  5 * time.Minute,
		},
		Log: logger.DefaultConfig,
		Health: Health{
			StoreFailures: healthtracker.HealthConfig{
				EvaluationInterval: 5 * time.Second,
				WarnDuration:       time.Minute,
				ErrorDuration:      5 * time.Minute,
				WarnSequence:       10,
				ErrorSequence:      100,
			},
			StartPhase: starttracker.StartConfig{
				EvaluationInterval: 5 * time.Second,
				ReportHealthz:      true,
				WarnDuration:       time.Minute,
				ErrorDuration:      5 * time.Minute,
			},
		},
	}
}
