package domain

// DefaultFeeRate is the taker fee rate applied to 5-minute crypto markets.
const DefaultFeeRate = 0.0625

// Fee returns the taker fee for trading notional USDC at price.
// Fees peak at 0.50 and vanish toward 0 and 1.
func Fee(price, notional, rate float64) float64 {
	if price <= 0 || price >= 1 || notional <= 0 || rate <= 0 {
		return 0
	}
	return price * (1 - price) * rate * notional
}
