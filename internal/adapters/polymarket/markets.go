package polymarket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/alejandrodnm/updownbot/internal/adapters/httpjson"
	"github.com/alejandrodnm/updownbot/internal/domain"
)

const (
	// SlotOrigin es el ancla compartida de los slots de 5 minutos (22 feb 2026).
	SlotOrigin = 1771778100
	// SlotStep es la duración de un slot en segundos.
	SlotStep = 300

	gammaMarketsPath = "/markets"
	clobMarketsPath  = "/markets/"
	bookPath         = "/book"
)

// slotOffsets es el orden en que se prueban los slots vecinos: el actual,
// los dos siguientes (mercados creados por adelantado) y el anterior.
var slotOffsets = []int64{0, 1, 2, -1}

// SlotStart devuelve el inicio del slot de 5 minutos que contiene now.
func SlotStart(now time.Time) int64 {
	ts := now.Unix()
	elapsed := (ts - SlotOrigin) % SlotStep
	if elapsed < 0 {
		elapsed += SlotStep
	}
	return ts - elapsed
}

// SlotSlug construye el slug de Gamma para un slot, p.ej. "sol-updown-5m-1771778100".
func SlotSlug(asset string, slot int64) string {
	return fmt.Sprintf("%s-updown-5m-%d", asset, slot)
}

// FindActiveMarket busca el mercado vivo más cercano a now.
// Para cada slot candidato: Gamma por slug → CLOB /markets/{id} → comprobación
// de que el book del token Up existe. Un candidato que falla se salta.
func (c *Client) FindActiveMarket(ctx context.Context, now time.Time) (domain.Market, error) {
	base := SlotStart(now)
	var lastErr error

	for _, off := range slotOffsets {
		if err := ctx.Err(); err != nil {
			return domain.Market{}, err
		}
		slug := SlotSlug(c.asset, base+off*SlotStep)

		m, err := c.resolveSlot(ctx, slug)
		if err != nil {
			if !errors.Is(err, errSkipSlot) {
				lastErr = err
				slog.Debug("market discovery: slot failed", "slug", slug, "err", err)
			}
			continue
		}

		slog.Debug("market discovery: active market found",
			"slug", slug,
			"condition_id", m.ConditionID,
			"end", m.EndDate,
		)
		return m, nil
	}

	if lastErr != nil {
		return domain.Market{}, fmt.Errorf("polymarket.FindActiveMarket: %w: %v", domain.ErrNoActiveMarket, lastErr)
	}
	return domain.Market{}, fmt.Errorf("polymarket.FindActiveMarket: %w", domain.ErrNoActiveMarket)
}

// errSkipSlot marca un slot que no tiene mercado utilizable sin ser un fallo de la API.
var errSkipSlot = errors.New("slot has no usable market")

func (c *Client) resolveSlot(ctx context.Context, slug string) (domain.Market, error) {
	var gms []gammaMarket
	u := c.gammaBase + gammaMarketsPath + "?slug=" + url.QueryEscape(slug)
	if err := c.get(ctx, c.gammaLimiter, u, &gms); err != nil {
		return domain.Market{}, skipIfNotFound(fmt.Errorf("gamma %s: %w", slug, err))
	}
	if len(gms) == 0 || gms[0].ConditionID == "" || gms[0].Closed {
		return domain.Market{}, errSkipSlot
	}
	gm := gms[0]

	var cm clobMarket
	if err := c.get(ctx, c.clobLimiter, c.clobBase+clobMarketsPath+url.PathEscape(gm.ConditionID), &cm); err != nil {
		return domain.Market{}, skipIfNotFound(fmt.Errorf("clob market %s: %w", gm.ConditionID, err))
	}

	m, ok := mapMarket(gm, cm)
	if !ok || m.Closed {
		return domain.Market{}, errSkipSlot
	}

	// Un mercado recién creado puede no tener book todavía.
	var book orderBookResponse
	if err := c.get(ctx, c.booksLimiter, c.bookURL(m.UpToken().TokenID), &book); err != nil {
		return domain.Market{}, skipIfNotFound(fmt.Errorf("book %s: %w", m.UpToken().TokenID, err))
	}
	ob := mapOrderBook(m.UpToken().TokenID, book)
	slog.Debug("polymarket: slot resolved",
		"slug", slug,
		"condition_id", m.ConditionID,
		"up_bid", ob.BestBid(),
		"up_ask", ob.BestAsk(),
	)
	return m, nil
}

func skipIfNotFound(err error) error {
	if errors.Is(err, httpjson.ErrNotFound) {
		return errSkipSlot
	}
	return err
}

func (c *Client) bookURL(tokenID string) string {
	return c.clobBase + bookPath + "?token_id=" + url.QueryEscape(tokenID)
}
