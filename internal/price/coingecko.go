package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sol-wallet-tools/internal/config"
	"sol-wallet-tools/internal/util"
)

const coinID = "solana"

// CoinGecko reads /simple/price?ids=solana&vs_currencies=<fiat>. With an API
// key the pro header "x-cg-pro-api-key" is sent.
type CoinGecko struct {
	cfg    config.PriceProvider
	client *http.Client
}

// quote is keyed by coin id, then by lower-case fiat code. Prices decode
// straight into decimals so no float rounding happens on the way in.
type quote map[string]map[string]decimal.Decimal

func NewCoinGecko(cfg config.PriceProvider) *CoinGecko {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.coingecko.com/api/v3"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return &CoinGecko{cfg: cfg, client: util.NewHTTPClient(cfg.Timeout)}
}

func (c *CoinGecko) Name() string { return "coingecko" }

func (c *CoinGecko) GetSOLPrice(ctx context.Context, fiat string) (Price, error) {
	fiat = strings.ToLower(strings.TrimSpace(fiat))
	if fiat == "" {
		fiat = "usd"
	}

	var raw []byte
	err := util.Retry(ctx, max(1, c.cfg.MaxRetries), defaultDur(c.cfg.Backoff, 500*time.Millisecond), defaultDur(c.cfg.MaxBackoff, 5*time.Second), util.RetryableHTTP, func() error {
		var err error
		raw, err = c.fetch(ctx, fiat)
		return err
	})
	if err != nil {
		return Price{}, err
	}

	var q quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return Price{}, fmt.Errorf("coingecko: decode: %w", err)
	}
	byFiat, ok := q[coinID]
	if !ok {
		return Price{}, fmt.Errorf("coingecko: missing '%s' key", coinID)
	}
	val, ok := byFiat[fiat]
	if !ok {
		return Price{}, fmt.Errorf("coingecko: missing fiat '%s'", fiat)
	}
	if !val.IsPositive() {
		return Price{}, fmt.Errorf("coingecko: non-positive price %s", val)
	}
	return Price{Currency: strings.ToUpper(fiat), Value: val}, nil
}

// fetch performs one round trip and returns the body of a 2xx answer.
func (c *CoinGecko) fetch(ctx context.Context, fiat string) ([]byte, error) {
	q := url.Values{}
	q.Set("ids", coinID)
	q.Set("vs_currencies", fiat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("x-cg-pro-api-key", c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, &util.StatusError{Service: "coingecko", Code: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

func defaultDur(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
