package polymarket

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// FetchOrderBook obtiene el orderbook de un token con GET /book.
// Bids quedan ordenados de mayor a menor y asks de menor a mayor.
func (c *Client) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	if tokenID == "" {
		return domain.OrderBook{}, fmt.Errorf("polymarket.FetchOrderBook: empty token id")
	}
	var resp orderBookResponse
	if err := c.get(ctx, c.booksLimiter, c.bookURL(tokenID), &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket.FetchOrderBook %s: %w", tokenID, err)
	}
	return mapOrderBook(tokenID, resp), nil
}
