package polymarket

import (
	"context"
	"strings"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/updownbot/internal/adapters/httpjson"
)

const (
	defaultCLOBBase  = "https://clob.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Rate limits al 60% de los límites reales documentados.
	// CLOB /book: 1500/10s → 900/10s → 90/s
	booksRatePerSec = 90
	// Gamma /markets: 300/10s → 180/10s → 18/s
	gammaRatePerSec = 18
	// CLOB general (/markets/{id}): 9000/10s → 5400/10s → 540/s
	generalRatePerSec = 540
)

// Client es el HTTP client de Polymarket con rate limiting y retries.
// Implementa ports.MarketProvider y ports.BookProvider.
type Client struct {
	http         *httpjson.Client
	asset        string
	clobBase     string
	gammaBase    string
	clobLimiter  *rate.Limiter
	gammaLimiter *rate.Limiter
	booksLimiter *rate.Limiter
}

// NewClient crea un Client para el activo dado ("sol", "btc").
// Si clobBase o gammaBase están vacíos, usa los URLs de producción.
func NewClient(clobBase, gammaBase, asset string, opts ...httpjson.Option) *Client {
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	return &Client{
		http:         httpjson.New(opts...),
		asset:        strings.ToLower(asset),
		clobBase:     strings.TrimRight(clobBase, "/"),
		gammaBase:    strings.TrimRight(gammaBase, "/"),
		clobLimiter:  rate.NewLimiter(generalRatePerSec, 50),
		gammaLimiter: rate.NewLimiter(gammaRatePerSec, 10),
		booksLimiter: rate.NewLimiter(booksRatePerSec, 10),
	}
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	return c.http.Get(ctx, limiter, url, out)
}
