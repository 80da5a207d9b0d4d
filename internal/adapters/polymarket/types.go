package polymarket

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- CLOB API ---

// clobMarket es la respuesta de GET /markets/{condition_id}.
type clobMarket struct {
	ConditionID     string      `json:"condition_id"`
	Question        string      `json:"question"`
	MarketSlug      string      `json:"market_slug"`
	EndDateISO      string      `json:"end_date_iso"`
	AcceptingOrders bool        `json:"accepting_orders"`
	Active          bool        `json:"active"`
	Closed          bool        `json:"closed"`
	Tokens          []clobToken `json:"tokens"`
}

// clobToken representa un token (Up/Down) en el CLOB.
type clobToken struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
	Winner  bool    `json:"winner"`
}

// orderBookResponse es la respuesta de GET /book.
type orderBookResponse struct {
	Market  string         `json:"market"`
	AssetID string         `json:"asset_id"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// bookEntryRaw es un nivel de precio raw de la API (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// --- Gamma API ---

// gammaMarket contiene la metadata de un mercado buscado por slug.
type gammaMarket struct {
	ConditionID string `json:"conditionId"`
	Question    string `json:"question"`
	Slug        string `json:"slug"`
	EndDate     string `json:"endDate"`
	Active      bool   `json:"active"`
	Closed      bool   `json:"closed"`
}
