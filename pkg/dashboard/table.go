package dashboard

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/B0TMirage/cryptopulse/pkg/models"
)

var hundred = decimal.NewFromInt(100)

// Filter keeps rows whose name or symbol contains search, ignoring case.
// An empty search keeps everything.
func Filter(rows []models.DashboardRow, search string) []models.DashboardRow {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]models.DashboardRow, 0, len(rows))
	for _, row := range rows {
		if search == "" ||
			strings.Contains(strings.ToLower(row.Name), search) ||
			strings.Contains(strings.ToLower(row.Symbol), search) {
			out = append(out, row)
		}
	}
	return out
}

// Sort orders rows in place. Rows with equal keys keep their order in both
// directions. A missing 24h change or rank compares as 0.
func Sort(rows []models.DashboardRow, s SortState) {
	compare := comparator(s.Key)
	slices.SortStableFunc(rows, func(a, b models.DashboardRow) int {
		c := compare(a.MarketSnapshot, b.MarketSnapshot)
		if s.Dir == Desc {
			return -c
		}
		return c
	})
}

func comparator(key SortKey) func(a, b models.MarketSnapshot) int {
	switch key {
	case SortName:
		return func(a, b models.MarketSnapshot) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	case SortSymbol:
		return func(a, b models.MarketSnapshot) int {
			return strings.Compare(strings.ToLower(a.Symbol), strings.ToLower(b.Symbol))
		}
	case SortPrice:
		return func(a, b models.MarketSnapshot) int { return a.CurrentPrice.Cmp(b.CurrentPrice) }
	case SortChange24h:
		return func(a, b models.MarketSnapshot) int { return cmp.Compare(change(a), change(b)) }
	case SortMarketCap:
		return func(a, b models.MarketSnapshot) int { return a.MarketCap.Cmp(b.MarketCap) }
	case SortTotalVolume:
		return func(a, b models.MarketSnapshot) int { return a.TotalVolume.Cmp(b.TotalVolume) }
	default:
		return func(a, b models.MarketSnapshot) int { return cmp.Compare(a.MarketCapRank, b.MarketCapRank) }
	}
}

func change(s models.MarketSnapshot) float64 {
	if s.PriceChangePercentage24h == nil {
		return 0
	}
	return *s.PriceChangePercentage24h
}

// ComputeStats summarizes a listing. The average and the top gainer only
// look at coins that report a 24h change.
func ComputeStats(listing []models.MarketSnapshot) models.MarketStats {
	var stats models.MarketStats
	var sum float64
	var counted int
	var btc *models.MarketSnapshot

	for i := range listing {
		s := listing[i]
		stats.TotalMarketCap = stats.TotalMarketCap.Add(s.MarketCap)
		if strings.EqualFold(s.Symbol, "btc") && btc == nil {
			btc = &s
		}
		if s.PriceChangePercentage24h == nil {
			continue
		}
		sum += *s.PriceChangePercentage24h
		counted++
		if stats.TopGainer == nil || *s.PriceChangePercentage24h > *stats.TopGainer.PriceChangePercentage24h {
			stats.TopGainer = &s
		}
	}

	if counted > 0 {
		stats.AvgChange24h = sum / float64(counted)
	}
	if btc != nil && stats.TotalMarketCap.IsPositive() {
		dominance := btc.MarketCap.Mul(hundred).Div(stats.TotalMarketCap).Round(1)
		stats.BTCDominance = &dominance
	}
	return stats
}
