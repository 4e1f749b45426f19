package models

import "github.com/shopspring/decimal"

// MarketSnapshot is one point-in-time quote for a coin as reported by the
// market data provider.
type MarketSnapshot struct {
	ID                       string          `json:"id"`
	Name                     string          `json:"name"`
	Symbol                   string          `json:"symbol"`
	Image                    string          `json:"image"`
	CurrentPrice             decimal.Decimal `json:"current_price"`
	PriceChangePercentage24h *float64        `json:"price_change_percentage_24h"`
	MarketCap                decimal.Decimal `json:"market_cap"`
	TotalVolume              decimal.Decimal `json:"total_volume"`
	MarketCapRank            int             `json:"market_cap_rank"`
}

type DashboardRow struct {
	MarketSnapshot
	Starred bool `json:"starred"`
}

type MarketStats struct {
	TotalMarketCap decimal.Decimal  `json:"totalMarketCap"`
	AvgChange24h   float64          `json:"avgChange24h"`
	TopGainer      *MarketSnapshot  `json:"topGainer,omitempty"`
	BTCDominance   *decimal.Decimal `json:"btcDominance,omitempty"`
}
