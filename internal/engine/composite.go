package engine

import (
	"fmt"
	"time"

	"spawnpk-tradepost/internal/tradepost"
)

// RecipeComponent is one fixed sub-resource requirement of a composite
// recipe. Raw components are priced per unit from their own trades with no
// shop conversion; the rest are sourced from a shop's opportunity list keyed
// by Resource.
type RecipeComponent struct {
	Resource string `json:"resource"`
	Quantity int64  `json:"quantity"`
	Raw      bool   `json:"raw,omitempty"`
}

// Recipe is a fixed multi-commodity crafting requirement. Recipes are
// configuration constants, not derived from market data.
type Recipe struct {
	Name       string            `json:"name"`
	Components []RecipeComponent `json:"components"`
}

// BloodchantingRecipe is the composite good this tool was built around:
// one bloodchanting stone consumes blood diamonds plus currency from the
// two blood shops.
var BloodchantingRecipe = Recipe{
	Name: "Bloodchanting stone",
	Components: []RecipeComponent{
		{Resource: "Blood diamonds", Quantity: 10, Raw: true},
		{Resource: "Blood Shards", Quantity: 250},
		{Resource: "Blood Synthesis Tokens", Quantity: 500},
	},
}

// ComponentCost reports the chosen source and cost for one sub-resource
// under one scenario. TotalReceived may exceed the required quantity:
// purchases are whole items and leftover yield is expected.
type ComponentCost struct {
	Resource      string  `json:"resource"`
	SourceItem    string  `json:"source_item"`
	UnitYield     int64   `json:"unit_yield,omitempty"`
	PurchaseCount int64   `json:"purchase_count"`
	TotalReceived int64   `json:"total_received"`
	UnitCost      float64 `json:"unit_cost"`
	Subtotal      float64 `json:"subtotal"`
}

// CompositeResult is the full recipe costing for one scenario.
// TotalCost is exactly the sum of the component subtotals.
type CompositeResult struct {
	Scenario   Scenario        `json:"scenario"`
	TotalCost  float64         `json:"total_cost"`
	Components []ComponentCost `json:"components"`
}

// ComputeRecipeCost prices the recipe under all three scenarios.
//
// opportunities maps a resource name (a shop's currency label) to that
// shop's item list, already computed for the active window; only entries
// with data are considered. rawTrades price the recipe's raw components
// directly. Fails with a descriptive reason when any required resource has
// no usable data in the window; there is no partial or defaulted costing.
func ComputeRecipeCost(opportunities map[string][]ArbitrageOpportunity, rawTrades []tradepost.TradeRecord, w Window, now time.Time, recipe Recipe) (map[Scenario]*CompositeResult, error) {
	rawStats := make(map[string]*TradeStatistics)
	usable := make(map[string][]ArbitrageOpportunity, len(recipe.Components))
	for _, comp := range recipe.Components {
		if comp.Raw {
			stats := AggregatePerUnit(FilterByWindow(MatchTradesByName(rawTrades, comp.Resource), w, now))
			if stats == nil {
				return nil, fmt.Errorf("no %s trades in the %s window", comp.Resource, w)
			}
			rawStats[comp.Resource] = stats
			continue
		}
		var withData []ArbitrageOpportunity
		for _, o := range opportunities[comp.Resource] {
			if o.HasData() {
				withData = append(withData, o)
			}
		}
		if len(withData) == 0 {
			return nil, fmt.Errorf("no usable %s source in the %s window", comp.Resource, w)
		}
		usable[comp.Resource] = withData
	}

	results := make(map[Scenario]*CompositeResult, len(Scenarios))
	for _, scenario := range Scenarios {
		res := &CompositeResult{Scenario: scenario}
		for _, comp := range recipe.Components {
			var cc ComponentCost
			if comp.Raw {
				cc = rawComponentCost(comp, rawStats[comp.Resource], scenario)
			} else {
				cc = shopComponentCost(comp, usable[comp.Resource], scenario)
			}
			res.Components = append(res.Components, cc)
			res.TotalCost += cc.Subtotal
		}
		results[scenario] = res
	}
	return results, nil
}

// shopComponentCost picks the cheapest shop source for the scenario and
// prices the requirement. The scan is a stable linear pass: on ties the
// first minimal opportunity wins.
func shopComponentCost(comp RecipeComponent, opps []ArbitrageOpportunity, scenario Scenario) ComponentCost {
	best := opps[0]
	for _, o := range opps[1:] {
		if o.Costs.ByScenario(scenario) < best.Costs.ByScenario(scenario) {
			best = o
		}
	}

	count := (comp.Quantity + best.Value - 1) / best.Value
	unitCost := best.Costs.ByScenario(scenario)
	return ComponentCost{
		Resource:      comp.Resource,
		SourceItem:    best.ItemName,
		UnitYield:     best.Value,
		PurchaseCount: count,
		TotalReceived: count * best.Value,
		UnitCost:      unitCost,
		// Cost scales with the required quantity, not the rounded-up
		// purchase count: partial-item overflow is priced at the marginal
		// per-unit rate.
		Subtotal: unitCost * float64(comp.Quantity),
	}
}

// rawComponentCost prices a directly traded commodity at its per-unit
// scenario price.
func rawComponentCost(comp RecipeComponent, stats *TradeStatistics, scenario Scenario) ComponentCost {
	unit := scenarioPrice(stats, scenario)
	return ComponentCost{
		Resource:      comp.Resource,
		SourceItem:    comp.Resource,
		PurchaseCount: comp.Quantity,
		TotalReceived: comp.Quantity,
		UnitCost:      unit,
		Subtotal:      unit * float64(comp.Quantity),
	}
}

// scenarioPrice picks the statistic driving the given scenario.
func scenarioPrice(s *TradeStatistics, scenario Scenario) float64 {
	switch scenario {
	case ScenarioMin:
		return float64(s.MinPrice)
	case ScenarioMax:
		return float64(s.MaxPrice)
	}
	return s.AvgPrice
}
