// Package binance fetches spot prices from the Binance public ticker.
package binance

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/updownbot/internal/adapters/httpjson"
)

const (
	defaultBase = "https://api.binance.com"
	tickerPath  = "/api/v3/ticker/price"

	// 6000 weight/min, ticker de un símbolo pesa 2 → ~50/s. Vamos muy por debajo.
	tickerRatePerSec = 10
	tickerTimeout    = 4 * time.Second
)

// Client implementa ports.SpotPriceProvider.
type Client struct {
	http    *httpjson.Client
	base    string
	limiter *rate.Limiter
}

// NewClient crea un Client. base vacío usa la API de producción.
// El timeout por defecto es corto: un precio viejo no sirve.
func NewClient(base string, opts ...httpjson.Option) *Client {
	if base == "" {
		base = defaultBase
	}
	opts = append([]httpjson.Option{
		httpjson.WithTimeout(tickerTimeout),
		httpjson.WithRetries(1, 200*time.Millisecond),
	}, opts...)
	return &Client{
		http:    httpjson.New(opts...),
		base:    strings.TrimRight(base, "/"),
		limiter: rate.NewLimiter(tickerRatePerSec, 5),
	}
}

type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Symbol convierte un activo ("sol") al par de Binance ("SOLUSDT").
func Symbol(asset string) string {
	return strings.ToUpper(asset) + "USDT"
}

// FetchSpotPrice devuelve el último precio del par.
func (c *Client) FetchSpotPrice(ctx context.Context, symbol string) (float64, error) {
	var resp tickerResponse
	u := c.base + tickerPath + "?symbol=" + url.QueryEscape(symbol)
	if err := c.http.Get(ctx, c.limiter, u, &resp); err != nil {
		return 0, fmt.Errorf("binance.FetchSpotPrice %s: %w", symbol, err)
	}
	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("binance.FetchSpotPrice %s: parse %q: %w", symbol, resp.Price, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("binance.FetchSpotPrice %s: non-positive price %v", symbol, price)
	}
	return price, nil
}
