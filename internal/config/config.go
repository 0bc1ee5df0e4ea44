package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RPC struct {
	URL             string        `yaml:"url"`
	WSURL           string        `yaml:"ws_url"`
	Commitment      string        `yaml:"commitment"` // processed | confirmed | finalized
	Timeout         time.Duration `yaml:"timeout"`    // per call
	UserAgent       string        `yaml:"user_agent"`
	MaxRetries      int           `yaml:"max_retries"` // read calls only
	Backoff         time.Duration `yaml:"backoff"`
	MaxBackoff      time.Duration `yaml:"max_backoff"`
	SkipPreflight   bool          `yaml:"skip_preflight"`
	ConfirmTimeout  time.Duration `yaml:"confirm_timeout"`
	ExplorerCluster string        `yaml:"explorer_cluster"` // explorer ?cluster= value
}

type Wallet struct {
	Path       string `yaml:"path"`        // transfer source / keyconv input
	EnrollPath string `yaml:"enroll_path"` // signer of the enrollment transactions
}

type Transfer struct {
	Destination string `yaml:"destination"`
}

type Enroll struct {
	Program        string        `yaml:"program"`
	MPLCoreProgram string        `yaml:"mpl_core_program"`
	Collection     string        `yaml:"collection"`
	GitHub         string        `yaml:"github"`
	Track          string        `yaml:"track"` // ts | rs
	StepDelay      time.Duration `yaml:"step_delay"`
	StatePath      string        `yaml:"state_path"`
}

type PriceProvider struct {
	Type       string        `yaml:"type"`
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	UserAgent  string        `yaml:"user_agent"`
	MaxRetries int           `yaml:"max_retries"` // 429, 5xx and transport errors
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

type Price struct {
	Enabled  bool          `yaml:"enabled"`
	Currency string        `yaml:"currency"`
	Provider PriceProvider `yaml:"provider"`
}

type Metrics struct {
	Enabled        bool          `yaml:"enabled"`
	PushgatewayURL string        `yaml:"pushgateway_url"`
	TextfilePath   string        `yaml:"textfile_path"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Exporter configures the long-running balance exporter.
type Exporter struct {
	ListenAddress  string        `yaml:"listen_address"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	Interval       time.Duration `yaml:"interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PriceTTL       time.Duration `yaml:"price_ttl"`
	Addresses      []string      `yaml:"addresses"`
}

type Log struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // console | json
}

type Config struct {
	RPC      RPC      `yaml:"rpc"`
	Wallet   Wallet   `yaml:"wallet"`
	Transfer Transfer `yaml:"transfer"`
	Enroll   Enroll   `yaml:"enroll"`
	Price    Price    `yaml:"price"`
	Metrics  Metrics  `yaml:"metrics"`
	Exporter Exporter `yaml:"exporter"`
	Log      Log      `yaml:"log"`
}

// Load reads path and fills defaults. A missing file yields the defaults so
// the tools work against devnet without any setup.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse yaml: %w", err)
			}
		}
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.RPC.URL == "" {
		c.RPC.URL = "https://api.devnet.solana.com"
	}
	if c.RPC.WSURL == "" {
		c.RPC.WSURL = "wss://api.devnet.solana.com"
	}
	if c.RPC.Commitment == "" {
		c.RPC.Commitment = "confirmed"
	}
	if c.RPC.Timeout == 0 {
		c.RPC.Timeout = 10 * time.Second
	}
	if c.RPC.MaxRetries == 0 {
		c.RPC.MaxRetries = 3
	}
	if c.RPC.Backoff == 0 {
		c.RPC.Backoff = 500 * time.Millisecond
	}
	if c.RPC.MaxBackoff == 0 {
		c.RPC.MaxBackoff = 5 * time.Second
	}
	if c.RPC.ConfirmTimeout == 0 {
		c.RPC.ConfirmTimeout = 60 * time.Second
	}
	if c.RPC.ExplorerCluster == "" {
		c.RPC.ExplorerCluster = "devnet"
	}
	if c.Wallet.Path == "" {
		c.Wallet.Path = "dev-wallet.json"
	}
	if c.Wallet.EnrollPath == "" {
		c.Wallet.EnrollPath = "turbin3-wallet.json"
	}
	if c.Enroll.Program == "" {
		c.Enroll.Program = "TRBZyQHB3m68FGeVsqTK39Wm4xejadjVhP5MAZaKWDM"
	}
	if c.Enroll.MPLCoreProgram == "" {
		c.Enroll.MPLCoreProgram = "CoREENxT6tW1HoK8ypY1SxRMZTcVPm7R94rH4PZNhX7d"
	}
	if c.Enroll.Collection == "" {
		c.Enroll.Collection = "5ebsp5RChCGK7ssRZMVMufgVZhd2kFbNaotcZ5UvytN2"
	}
	if c.Enroll.Track == "" {
		c.Enroll.Track = "ts"
	}
	if c.Enroll.StepDelay == 0 {
		c.Enroll.StepDelay = 2 * time.Second
	}
	if c.Enroll.StatePath == "" {
		c.Enroll.StatePath = "enroll-state.json"
	}
	if c.Price.Currency == "" {
		c.Price.Currency = "EUR"
	}
	if c.Price.Provider.Type == "" {
		c.Price.Provider.Type = "coingecko"
	}
	if c.Price.Provider.Timeout == 0 {
		c.Price.Provider.Timeout = 4 * time.Second
	}
	if c.Price.Provider.BaseURL == "" {
		c.Price.Provider.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if c.Price.Provider.MaxRetries == 0 {
		c.Price.Provider.MaxRetries = 3
	}
	if c.Price.Provider.Backoff == 0 {
		c.Price.Provider.Backoff = 500 * time.Millisecond
	}
	if c.Price.Provider.MaxBackoff == 0 {
		c.Price.Provider.MaxBackoff = 5 * time.Second
	}
	if c.Metrics.Timeout == 0 {
		c.Metrics.Timeout = 5 * time.Second
	}
	if c.Exporter.ListenAddress == "" {
		c.Exporter.ListenAddress = ":9464"
	}
	if c.Exporter.ReadTimeout == 0 {
		c.Exporter.ReadTimeout = 5 * time.Second
	}
	if c.Exporter.WriteTimeout == 0 {
		c.Exporter.WriteTimeout = 10 * time.Second
	}
	if c.Exporter.IdleTimeout == 0 {
		c.Exporter.IdleTimeout = 60 * time.Second
	}
	if c.Exporter.Interval == 0 {
		c.Exporter.Interval = 30 * time.Second
	}
	if c.Exporter.RequestTimeout == 0 {
		c.Exporter.RequestTimeout = 10 * time.Second
	}
	if c.Exporter.PriceTTL == 0 {
		c.Exporter.PriceTTL = 5 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

func (c *Config) Validate() error {
	switch c.RPC.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("rpc.commitment: unsupported value %q", c.RPC.Commitment)
	}
	switch c.Enroll.Track {
	case "ts", "rs":
	default:
		return fmt.Errorf("enroll.track: unsupported value %q", c.Enroll.Track)
	}
	if c.Exporter.Interval < 0 {
		return errors.New("exporter.interval must be positive")
	}
	if c.RPC.MaxRetries < 0 {
		return errors.New("rpc.max_retries must be >= 0")
	}
	return nil
}
