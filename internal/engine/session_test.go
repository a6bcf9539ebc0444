package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spawnpk-tradepost/internal/tradepost"
)

// fakeFetcher serves canned trades per item name and records fetch order.
type fakeFetcher struct {
	mu      sync.Mutex
	trades  map[string][]tradepost.TradeRecord
	errs    map[string]error
	fetched []string
	block   chan struct{}
}

func (f *fakeFetcher) FetchItemTrades(ctx context.Context, searchText string, maxPages int) ([]tradepost.TradeRecord, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.fetched = append(f.fetched, searchText)
	f.mu.Unlock()
	return f.trades[searchText], f.errs[searchText]
}

func (f *fakeFetcher) order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func sessionFixture(f *fakeFetcher) *Session {
	s := NewSession(f, testShops(), []string{"Blood diamonds"}, 5)
	s.now = func() time.Time { return testNow }
	return s
}

func TestSession_Refresh(t *testing.T) {
	f := &fakeFetcher{trades: map[string][]tradepost.TradeRecord{
		"Abyssal whip":   {trade("Abyssal whip", 2_500_000, tradepost.CurrencyPrimary, 1, testNow)},
		"Blood diamonds": {trade("Blood diamonds", 3, tradepost.CurrencySecondary, 40, testNow)},
	}}
	s := sessionFixture(f)

	if s.Current() != nil {
		t.Fatal("dataset present before first refresh")
	}

	summary, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if summary.Items != 4 {
		t.Errorf("Items = %d, want 4 (3 shop items + raw commodity)", summary.Items)
	}
	if summary.ItemsWithData != 2 || summary.TotalTrades != 2 {
		t.Errorf("summary = %+v", summary)
	}

	ds := s.Current()
	if ds == nil || len(ds.Trades) != 2 {
		t.Fatalf("dataset = %+v", ds)
	}
	if !ds.CapturedAt.Equal(testNow) {
		t.Errorf("CapturedAt = %v", ds.CapturedAt)
	}

	// Shop items fetched in sorted order, raw commodity last.
	want := []string{"Abyssal whip", "Dragon claws", "Morrigan's javelin", "Blood diamonds"}
	got := f.order()
	if len(got) != len(want) {
		t.Fatalf("fetch order = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fetch order = %v, want %v", got, want)
		}
	}
}

func TestSession_RefreshKeepsPartialFailures(t *testing.T) {
	f := &fakeFetcher{
		trades: map[string][]tradepost.TradeRecord{
			"Abyssal whip": {trade("Abyssal whip", 2_500_000, tradepost.CurrencyPrimary, 1, testNow)},
		},
		errs: map[string]error{"Dragon claws": errors.New("tradepost 502")},
	}
	s := sessionFixture(f)

	summary, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(summary.Failures) != 1 {
		t.Errorf("Failures = %v, want 1 entry", summary.Failures)
	}
	// The failed item doesn't block the dataset install.
	if s.Current() == nil {
		t.Fatal("dataset not installed despite partial failure")
	}
}

func TestSession_CanceledRefreshKeepsOldDataset(t *testing.T) {
	f := &fakeFetcher{trades: map[string][]tradepost.TradeRecord{
		"Abyssal whip": {trade("Abyssal whip", 2_500_000, tradepost.CurrencyPrimary, 1, testNow)},
	}}
	s := sessionFixture(f)
	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	old := s.Current()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Refresh(ctx); err == nil {
		t.Fatal("expected error from canceled refresh")
	}
	if s.Current() != old {
		t.Error("canceled refresh replaced the dataset")
	}
}

func TestSession_RefreshCoalesced(t *testing.T) {
	f := &fakeFetcher{
		trades: map[string][]tradepost.TradeRecord{
			"Abyssal whip": {trade("Abyssal whip", 2_500_000, tradepost.CurrencyPrimary, 1, testNow)},
		},
		block: make(chan struct{}),
	}
	s := sessionFixture(f)

	var wg sync.WaitGroup
	results := make([]*RefreshSummary, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = s.Refresh(context.Background())
		}(i)
	}
	// Let the goroutines pile onto the in-flight refresh, then release it.
	time.Sleep(50 * time.Millisecond)
	if !s.Refreshing() {
		t.Error("Refreshing() = false while a cycle is blocked")
	}
	close(f.block)
	wg.Wait()

	if got := len(f.order()); got != 4 {
		t.Errorf("fetches = %d, want 4 (one coalesced cycle)", got)
	}
	for i, r := range results {
		if r == nil {
			t.Errorf("caller %d got nil summary", i)
		}
	}
}

func TestSession_RestoreRefusesOlderDataset(t *testing.T) {
	f := &fakeFetcher{}
	s := sessionFixture(f)

	newer := &Dataset{CapturedAt: testNow}
	older := &Dataset{CapturedAt: testNow.Add(-time.Hour)}

	s.Restore(newer)
	s.Restore(older)
	if s.Current() != newer {
		t.Error("older snapshot clobbered newer dataset")
	}
}

func TestDataset_Fresh(t *testing.T) {
	ds := &Dataset{CapturedAt: testNow.Add(-10 * time.Minute)}
	if !ds.Fresh(30*time.Minute, testNow) {
		t.Error("10 minute old dataset not fresh within 30m")
	}
	if ds.Fresh(5*time.Minute, testNow) {
		t.Error("10 minute old dataset fresh within 5m")
	}
	var nilDS *Dataset
	if nilDS.Fresh(time.Hour, testNow) {
		t.Error("nil dataset reported fresh")
	}
}

func TestSession_ViewsWithoutData(t *testing.T) {
	s := sessionFixture(&fakeFetcher{})
	if _, err := s.Opportunities(WindowWeek); err == nil {
		t.Error("Opportunities without data should error")
	}
	if _, err := s.Composite(WindowWeek, BloodchantingRecipe); err == nil {
		t.Error("Composite without data should error")
	}
	if _, err := s.Dashboard(); err == nil {
		t.Error("Dashboard without data should error")
	}
}

func TestSession_Views(t *testing.T) {
	f := &fakeFetcher{trades: map[string][]tradepost.TradeRecord{
		"Dragon claws":       {trade("Dragon claws", 300_000_000, tradepost.CurrencyPrimary, 1, testNow.Add(-time.Hour))},
		"Abyssal whip":       {trade("Abyssal whip", 100_000_000, tradepost.CurrencyPrimary, 1, testNow.Add(-time.Hour))},
		"Morrigan's javelin": {trade("Morrigan's javelin", 40_000_000, tradepost.CurrencyPrimary, 1, testNow.Add(-time.Hour))},
		"Blood diamonds":     {trade("Blood diamonds", 3, tradepost.CurrencySecondary, 40, testNow.Add(-time.Hour))},
	}}
	s := sessionFixture(f)
	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	opps, err := s.Opportunities(WindowWeek)
	if err != nil {
		t.Fatalf("Opportunities: %v", err)
	}
	if len(opps) != 3 {
		t.Errorf("opportunities = %d, want 3", len(opps))
	}

	results, err := s.Composite(WindowWeek, BloodchantingRecipe)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("composite scenarios = %d, want 3", len(results))
	}

	dash, err := s.Dashboard()
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if dash.TotalItems != 3 {
		t.Errorf("dashboard items = %d, want 3", dash.TotalItems)
	}
}
