package domain

// OrderBook representa el libro de órdenes de un token.
type OrderBook struct {
	TokenID string
	Bids    []BookEntry // ordenados mayor a menor precio
	Asks    []BookEntry // ordenados menor a mayor precio
}

// BookEntry es un nivel de precio en el orderbook.
type BookEntry struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Fill es el resultado de recorrer la profundidad del book con un presupuesto.
type Fill struct {
	AvgPrice float64
	Shares   float64
}

// BestBid devuelve el mejor precio de compra (mayor bid).
// Devuelve 0 si el book está vacío.
func (ob OrderBook) BestBid() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Price
}

// BestAsk devuelve el mejor precio de venta (menor ask).
// Devuelve 0 si el book está vacío.
func (ob OrderBook) BestAsk() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Price
}

// WalkAsks simula una compra a mercado por budget USDC recorriendo los asks
// de menor a mayor. ok=false si la profundidad no alcanza para el presupuesto.
func (ob OrderBook) WalkAsks(budget float64) (Fill, bool) {
	if budget <= 0 {
		return Fill{}, false
	}
	remaining := budget
	var shares float64
	for _, a := range ob.Asks {
		if a.Price <= 0 || a.Size <= 0 {
			continue
		}
		cost := a.Price * a.Size
		if cost >= remaining {
			shares += remaining / a.Price
			remaining = 0
			break
		}
		shares += a.Size
		remaining -= cost
	}
	if remaining > 1e-9 || shares <= 0 {
		return Fill{}, false
	}
	return Fill{AvgPrice: budget / shares, Shares: shares}, true
}
