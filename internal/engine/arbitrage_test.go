package engine

import (
	"testing"
	"time"

	"spawnpk-tradepost/internal/config"
	"spawnpk-tradepost/internal/tradepost"
)

func testShops() []config.ShopConfig {
	return []config.ShopConfig{
		{
			ShopName: "Blood Shard Shop",
			Currency: "Blood Shards",
			Items: []config.ShopItem{
				{ItemName: "Dragon claws", ItemID: 14484, Value: 150},
				{ItemName: "Abyssal whip", ItemID: 4151, Value: 25},
			},
		},
		{
			ShopName: "Blood Synthesis Shop",
			Currency: "Blood Synthesis Tokens",
			Items: []config.ShopItem{
				{ItemName: "Morrigan's javelin", ItemID: 13879, Value: 40},
			},
		},
	}
}

func TestComputeOpportunities(t *testing.T) {
	trades := []tradepost.TradeRecord{
		trade("Dragon claws", 500_000_000, tradepost.CurrencyPrimary, 1, testNow.Add(-time.Hour)),
		trade("Dragon claws", 700_000_000, tradepost.CurrencyPrimary, 1, testNow.Add(-2*time.Hour)),
		trade("Abyssal whip", 2_500_000, tradepost.CurrencyPrimary, 1, testNow.Add(-time.Hour)),
	}

	opps := ComputeOpportunities(testShops(), trades, WindowWeek, testNow)
	if len(opps) != 3 {
		t.Fatalf("len = %d, want 3 (every configured item emitted)", len(opps))
	}

	claws := opps[0]
	if claws.ItemName != "Dragon claws" || claws.ShopName != "Blood Shard Shop" {
		t.Fatalf("order violated: first = %q/%q", claws.ItemName, claws.ShopName)
	}
	if !claws.HasData() {
		t.Fatal("claws should have data")
	}
	if got := claws.Costs.Min; got != 500_000_000.0/150 {
		t.Errorf("min cost = %v, want %v", got, 500_000_000.0/150)
	}
	if got := claws.Costs.Max; got != 700_000_000.0/150 {
		t.Errorf("max cost = %v, want %v", got, 700_000_000.0/150)
	}
	if got := claws.Costs.Avg; got != 600_000_000.0/150 {
		t.Errorf("avg cost = %v, want %v", got, 600_000_000.0/150)
	}

	// Item with no trades stays in the output with nil stats and costs.
	javelin := opps[2]
	if javelin.ItemName != "Morrigan's javelin" {
		t.Fatalf("third = %q", javelin.ItemName)
	}
	if javelin.HasData() || javelin.Stats != nil || javelin.Costs != nil {
		t.Errorf("no-data item carries stats: %+v", javelin)
	}
}

func TestComputeOpportunities_ScenarioCost(t *testing.T) {
	// value 250, min 500M: cost 2M coins per currency unit.
	shops := []config.ShopConfig{{
		ShopName: "Shop", Currency: "Blood Shards",
		Items: []config.ShopItem{{ItemName: "Thing", Value: 250}},
	}}
	trades := []tradepost.TradeRecord{
		trade("Thing", 500_000_000, tradepost.CurrencyPrimary, 1, testNow),
	}
	opps := ComputeOpportunities(shops, trades, WindowAll, testNow)
	if got := opps[0].Costs.Min; got != 2_000_000 {
		t.Errorf("min cost = %v, want 2000000", got)
	}
}

func TestComputeOpportunities_WindowExcludesOldTrades(t *testing.T) {
	trades := []tradepost.TradeRecord{
		trade("Abyssal whip", 2_500_000, tradepost.CurrencyPrimary, 1, testNow.Add(-30*24*time.Hour)),
	}
	opps := ComputeOpportunities(testShops(), trades, WindowDay, testNow)
	for _, o := range opps {
		if o.HasData() {
			t.Errorf("%s has data despite stale trades", o.ItemName)
		}
	}
}

func TestMatchTrades(t *testing.T) {
	item := config.ShopItem{ItemName: "Abyssal whip", ItemID: 4151, Value: 25}
	trades := []tradepost.TradeRecord{
		{ItemName: "Abyssal whip", ItemID: 4151, Price: 1, Amount: 1},
		{ItemName: "abyssal WHIP", Price: 2, Amount: 1},
		{ItemName: "Dragon claws", ItemID: 14484, Price: 3, Amount: 1},
		{ItemName: "Renamed whip", ItemID: 4151, Price: 4, Amount: 1},
	}
	got := MatchTrades(trades, item)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (id match, name match, id-only match)", len(got))
	}
}

func TestMatchTradesByName(t *testing.T) {
	trades := []tradepost.TradeRecord{
		{ItemName: "Blood diamonds", Price: 3, Amount: 40},
		{ItemName: "blood DIAMONDS", Price: 4, Amount: 10},
		{ItemName: "Blood diamond", Price: 5, Amount: 1},
	}
	got := MatchTradesByName(trades, "Blood diamonds")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

func TestScenario_Valid(t *testing.T) {
	for _, s := range Scenarios {
		if !s.Valid() {
			t.Errorf("%s not valid", s)
		}
	}
	if Scenario("best").Valid() {
		t.Error("unknown scenario accepted")
	}
}
