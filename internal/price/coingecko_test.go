package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sol-wallet-tools/internal/config"
)

func testProvider(url string, retries int) config.PriceProvider {
	return config.PriceProvider{
		Type:       "coingecko",
		BaseURL:    url,
		Timeout:    time.Second,
		MaxRetries: retries,
		Backoff:    time.Millisecond,
		MaxBackoff: 2 * time.Millisecond,
	}
}

func TestCoinGeckoGetSOLPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "solana", r.URL.Query().Get("ids"))
		assert.Equal(t, "eur", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "secret", r.Header.Get("x-cg-pro-api-key"))
		assert.Equal(t, "sol-wallet-tools/test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"solana":{"eur":142.37}}`))
	}))
	defer srv.Close()

	pc := testProvider(srv.URL+"/", 1)
	pc.APIKey = " secret "
	pc.UserAgent = "sol-wallet-tools/test"
	p, err := NewCoinGecko(pc).GetSOLPrice(context.Background(), " EUR ")
	require.NoError(t, err)
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, "142.37", p.Value.String())
}

func TestCoinGeckoRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`{"solana":{"usd":150}}`))
		}
	}))
	defer srv.Close()

	p, err := NewCoinGecko(testProvider(srv.URL, 3)).GetSOLPrice(context.Background(), "usd")
	require.NoError(t, err)
	assert.True(t, p.Value.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, int32(3), calls.Load())
}

func TestCoinGeckoClientErrorsAreFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewCoinGecko(testProvider(srv.URL, 3)).GetSOLPrice(context.Background(), "usd")
	assert.ErrorContains(t, err, "coingecko: http 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCoinGeckoErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"rate limited", http.StatusTooManyRequests, "", "rate limited"},
		{"server error", http.StatusBadGateway, "", "http 502"},
		{"missing coin", http.StatusOK, `{}`, "missing 'solana'"},
		{"missing fiat", http.StatusOK, `{"solana":{"usd":1}}`, "missing fiat 'eur'"},
		{"zero price", http.StatusOK, `{"solana":{"eur":0}}`, "non-positive"},
		{"bad json", http.StatusOK, `{`, "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewCoinGecko(testProvider(srv.URL, 1)).GetSOLPrice(context.Background(), "eur")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestPriceConvert(t *testing.T) {
	p := Price{Currency: "EUR", Value: decimal.RequireFromString("150")}
	assert.Equal(t, "0.15", p.Convert(decimal.RequireFromString("0.000995")).String())

	p = Price{Currency: "USD", Value: decimal.RequireFromString("0.29")}
	assert.Equal(t, "0.03", p.Convert(decimal.RequireFromString("0.1")).String())
	assert.Equal(t, "2.9", decimal.RequireFromString("10").Mul(p.Value).String())
}

func TestNewProviderFromConfig(t *testing.T) {
	p, err := NewProviderFromConfig(config.Price{Provider: config.PriceProvider{Type: "coingecko"}})
	require.NoError(t, err)
	assert.Equal(t, "coingecko", p.Name())

	_, err = NewProviderFromConfig(config.Price{})
	assert.ErrorContains(t, err, "required")

	_, err = NewProviderFromConfig(config.Price{Provider: config.PriceProvider{Type: "kraken"}})
	assert.ErrorContains(t, err, "unknown price provider")
}
