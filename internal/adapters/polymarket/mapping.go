package polymarket

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// mapMarket combina la metadata de Gamma con los tokens del CLOB.
// Devuelve false si el CLOB no expone los dos tokens.
func mapMarket(gm gammaMarket, cm clobMarket) (domain.Market, bool) {
	if len(cm.Tokens) < 2 {
		return domain.Market{}, false
	}

	up, down := cm.Tokens[0], cm.Tokens[1]
	for _, t := range cm.Tokens {
		o := strings.ToLower(t.Outcome)
		switch {
		case strings.Contains(o, "up"):
			up = t
		case strings.Contains(o, "down"):
			down = t
		}
	}
	if up.TokenID == "" || down.TokenID == "" || up.TokenID == down.TokenID {
		return domain.Market{}, false
	}

	m := domain.Market{
		ConditionID: cm.ConditionID,
		Question:    cm.Question,
		Slug:        cm.MarketSlug,
		Active:      cm.Active,
		Closed:      cm.Closed,
		Tokens: [2]domain.Token{
			{TokenID: up.TokenID, Outcome: outcomeOr(up.Outcome, "Up")},
			{TokenID: down.TokenID, Outcome: outcomeOr(down.Outcome, "Down")},
		},
	}
	if m.ConditionID == "" {
		m.ConditionID = gm.ConditionID
	}
	if m.Question == "" {
		m.Question = gm.Question
	}
	if m.Slug == "" {
		m.Slug = gm.Slug
	}

	// Gamma trae la hora exacta; end_date_iso del CLOB a veces es solo la fecha.
	for _, raw := range []string{gm.EndDate, cm.EndDateISO} {
		if t, ok := parseEndDate(raw); ok {
			m.EndDate = t
			break
		}
	}
	return m, true
}

func outcomeOr(o, fallback string) string {
	if o == "" {
		return fallback
	}
	return o
}

// parseEndDate prueba los formatos que usa Polymarket.
func parseEndDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// mapOrderBook convierte la respuesta de /book a domain.OrderBook.
func mapOrderBook(tokenID string, r orderBookResponse) domain.OrderBook {
	if r.AssetID != "" {
		tokenID = r.AssetID
	}
	return domain.OrderBook{
		TokenID: tokenID,
		Bids:    mapBookEntries(r.Bids, false),
		Asks:    mapBookEntries(r.Asks, true),
	}
}

// mapBookEntries convierte entries raw a domain.BookEntry y los ordena.
// ascending=true → menor a mayor (asks), ascending=false → mayor a menor (bids).
// Niveles ilegibles o con tamaño cero se descartan.
func mapBookEntries(raw []bookEntryRaw, ascending bool) []domain.BookEntry {
	entries := make([]domain.BookEntry, 0, len(raw))
	for _, r := range raw {
		price, err := strconv.ParseFloat(r.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(r.Size, 64)
		if err != nil {
			continue
		}
		if price <= 0 || size <= 0 {
			continue
		}
		entries = append(entries, domain.BookEntry{Price: price, Size: size})
	}

	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Price < entries[j].Price
		}
		return entries[i].Price > entries[j].Price
	})

	return entries
}
