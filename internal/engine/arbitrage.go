package engine

import (
	"strings"
	"time"

	"spawnpk-tradepost/internal/config"
	"spawnpk-tradepost/internal/tradepost"
)

// Scenario selects which statistic drives a cost figure.
type Scenario string

const (
	ScenarioMin Scenario = "min" // best case
	ScenarioAvg Scenario = "avg" // average case
	ScenarioMax Scenario = "max" // worst case
)

// Scenarios lists all pricing scenarios.
var Scenarios = []Scenario{ScenarioMin, ScenarioAvg, ScenarioMax}

// Valid reports whether s is a known scenario name.
func (s Scenario) Valid() bool {
	return s == ScenarioMin || s == ScenarioAvg || s == ScenarioMax
}

// ScenarioCosts holds what one unit of shop currency costs under each
// pricing scenario of an item's normalized price series.
type ScenarioCosts struct {
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
}

// ByScenario returns the cost figure for the given scenario.
func (c ScenarioCosts) ByScenario(s Scenario) float64 {
	switch s {
	case ScenarioMin:
		return c.Min
	case ScenarioMax:
		return c.Max
	}
	return c.Avg
}

// ArbitrageOpportunity is the per-item record of what one unit of a shop's
// currency costs when the item is bought on the trading post and sold to
// that shop. Stats and Costs are both nil when no trades survived the window
// filter; the entry is still emitted so the item stays visible and orderable.
type ArbitrageOpportunity struct {
	ItemName string           `json:"item_name"`
	ItemID   int32            `json:"item_id,omitempty"`
	ShopName string           `json:"shop_name"`
	Currency string           `json:"currency"`
	Value    int64            `json:"value"`
	Stats    *TradeStatistics `json:"stats,omitempty"`
	Costs    *ScenarioCosts   `json:"costs,omitempty"`
}

// HasData reports whether any trades backed this opportunity.
func (o ArbitrageOpportunity) HasData() bool {
	return o.Stats != nil
}

// ComputeOpportunities joins every configured shop item against the trade
// set and prices each one under the given window. Emits in shop-then-item
// order; each configured item appears exactly once per shop.
func ComputeOpportunities(shops []config.ShopConfig, trades []tradepost.TradeRecord, w Window, now time.Time) []ArbitrageOpportunity {
	var out []ArbitrageOpportunity
	for _, shop := range shops {
		for _, item := range shop.Items {
			out = append(out, computeOpportunity(shop, item, trades, w, now))
		}
	}
	return out
}

func computeOpportunity(shop config.ShopConfig, item config.ShopItem, trades []tradepost.TradeRecord, w Window, now time.Time) ArbitrageOpportunity {
	opp := ArbitrageOpportunity{
		ItemName: item.ItemName,
		ItemID:   item.ItemID,
		ShopName: shop.ShopName,
		Currency: shop.Currency,
		Value:    item.Value,
	}
	stats := Aggregate(FilterByWindow(MatchTrades(trades, item), w, now))
	if stats == nil {
		return opp
	}
	opp.Stats = stats
	opp.Costs = &ScenarioCosts{
		Min: float64(stats.MinPrice) / float64(item.Value),
		Avg: stats.AvgPrice / float64(item.Value),
		Max: float64(stats.MaxPrice) / float64(item.Value),
	}
	return opp
}

// MatchTrades selects the trades belonging to a shop item: item ID equality
// when both sides carry an ID, or case-insensitive name equality. The OR
// tolerates the upstream omitting item IDs.
func MatchTrades(trades []tradepost.TradeRecord, item config.ShopItem) []tradepost.TradeRecord {
	var out []tradepost.TradeRecord
	for _, t := range trades {
		if (t.ItemID > 0 && item.ItemID > 0 && t.ItemID == item.ItemID) ||
			strings.EqualFold(t.ItemName, item.ItemName) {
			out = append(out, t)
		}
	}
	return out
}

// MatchTradesByName selects trades by case-insensitive item name only,
// for commodities that have no shop catalog entry.
func MatchTradesByName(trades []tradepost.TradeRecord, name string) []tradepost.TradeRecord {
	var out []tradepost.TradeRecord
	for _, t := range trades {
		if strings.EqualFold(t.ItemName, name) {
			out = append(out, t)
		}
	}
	return out
}
