package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"spawnpk-tradepost/internal/config"
	"spawnpk-tradepost/internal/logger"
	"spawnpk-tradepost/internal/tradepost"
)

// TradeFetcher pulls an item's trade history from the trading post.
type TradeFetcher interface {
	FetchItemTrades(ctx context.Context, searchText string, maxPages int) ([]tradepost.TradeRecord, error)
}

// Dataset is one immutable capture of the full trade universe. A refresh
// replaces the dataset wholesale; readers never observe a half-updated one.
type Dataset struct {
	Trades     []tradepost.TradeRecord `json:"trades"`
	CapturedAt time.Time               `json:"captured_at"`
}

// Fresh reports whether the capture is younger than maxAge.
func (d *Dataset) Fresh(maxAge time.Duration, now time.Time) bool {
	if d == nil || d.CapturedAt.IsZero() {
		return false
	}
	return now.Sub(d.CapturedAt) < maxAge
}

// RefreshSummary reports what one refresh cycle accomplished.
type RefreshSummary struct {
	Items          int      `json:"items"`
	ItemsWithData  int      `json:"items_with_data"`
	TotalTrades    int      `json:"total_trades"`
	Failures       []string `json:"failures,omitempty"`
	DurationMillis int64    `json:"duration_ms"`
}

// Session owns the current dataset and serves derived views of it.
// Refreshes are coalesced: concurrent callers share one fetch cycle.
type Session struct {
	fetcher  TradeFetcher
	shops    []config.ShopConfig
	rawItems []string
	maxPages int
	now      func() time.Time

	group singleflight.Group

	mu         sync.RWMutex
	current    *Dataset
	generation uint64
	refreshing bool
}

// NewSession wires a fetcher to the shop catalogs. rawItems are traded
// commodities fetched on top of the shop items.
func NewSession(fetcher TradeFetcher, shops []config.ShopConfig, rawItems []string, maxPages int) *Session {
	return &Session{
		fetcher:  fetcher,
		shops:    shops,
		rawItems: rawItems,
		maxPages: maxPages,
		now:      time.Now,
	}
}

// Current returns the active dataset, or nil before the first refresh.
func (s *Session) Current() *Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Refreshing reports whether a fetch cycle is running.
func (s *Session) Refreshing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshing
}

// Restore installs a previously persisted dataset. It refuses to clobber
// a dataset captured later than the restored one.
func (s *Session) Restore(ds *Dataset) {
	if ds == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && !s.current.CapturedAt.Before(ds.CapturedAt) {
		return
	}
	s.current = ds
	s.generation++
}

// Refresh fetches every tracked item and atomically installs the result
// as the new dataset. Concurrent calls join the in-flight cycle and
// receive its summary. A canceled cycle leaves the previous dataset
// untouched.
func (s *Session) Refresh(ctx context.Context) (*RefreshSummary, error) {
	v, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		return s.refresh(ctx)
	})
	if v == nil {
		return nil, err
	}
	return v.(*RefreshSummary), err
}

func (s *Session) refresh(ctx context.Context) (*RefreshSummary, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.refreshing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	names := s.itemNames()
	started := s.now()
	logger.Section("Trading post refresh")
	logger.Info("SESSION", fmt.Sprintf("Fetching %d items (max %d pages each)", len(names), s.maxPages))

	summary := &RefreshSummary{Items: len(names)}
	var all []tradepost.TradeRecord
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("refresh aborted: %w", err)
		}
		trades, err := s.fetcher.FetchItemTrades(ctx, name, s.maxPages)
		if err != nil {
			logger.Warn("SESSION", fmt.Sprintf("Fetch %q: %v (keeping %d partial trades)", name, err, len(trades)))
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %v", name, err))
		}
		if len(trades) > 0 {
			summary.ItemsWithData++
			all = append(all, trades...)
		}
	}
	summary.TotalTrades = len(all)
	summary.DurationMillis = s.now().Sub(started).Milliseconds()

	ds := &Dataset{Trades: all, CapturedAt: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		logger.Warn("SESSION", fmt.Sprintf("Refresh superseded, discarding %d trades", len(all)))
		return summary, nil
	}
	s.current = ds
	logger.Success("SESSION", fmt.Sprintf("Refresh done: %d trades across %d/%d items in %dms",
		summary.TotalTrades, summary.ItemsWithData, summary.Items, summary.DurationMillis))
	return summary, nil
}

// itemNames is the deduplicated fetch list: every shop item name sorted,
// then the raw commodities.
func (s *Session) itemNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, shop := range s.shops {
		for _, item := range shop.Items {
			key := strings.ToLower(item.ItemName)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			names = append(names, item.ItemName)
		}
	}
	sort.Strings(names)
	for _, raw := range s.rawItems {
		key := strings.ToLower(raw)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, raw)
	}
	return names
}

// Opportunities prices every shop item against the current dataset.
func (s *Session) Opportunities(w Window) ([]ArbitrageOpportunity, error) {
	ds := s.Current()
	if ds == nil {
		return nil, fmt.Errorf("no trade data loaded yet")
	}
	return ComputeOpportunities(s.shops, ds.Trades, w, s.now()), nil
}

// Composite prices the recipe under all scenarios using the current
// dataset.
func (s *Session) Composite(w Window, recipe Recipe) (map[Scenario]*CompositeResult, error) {
	ds := s.Current()
	if ds == nil {
		return nil, fmt.Errorf("no trade data loaded yet")
	}
	now := s.now()
	opps := ComputeOpportunities(s.shops, ds.Trades, w, now)
	byCurrency := make(map[string][]ArbitrageOpportunity)
	for _, o := range opps {
		byCurrency[o.Currency] = append(byCurrency[o.Currency], o)
	}

	var raw []tradepost.TradeRecord
	for _, comp := range recipe.Components {
		if comp.Raw {
			raw = append(raw, MatchTradesByName(ds.Trades, comp.Resource)...)
		}
	}
	return ComputeRecipeCost(byCurrency, raw, w, now, recipe)
}

// Dashboard builds the full analysis bundle from the current dataset.
func (s *Session) Dashboard() (*Dashboard, error) {
	ds := s.Current()
	if ds == nil {
		return nil, fmt.Errorf("no trade data loaded yet")
	}
	return BuildDashboard(s.shops, ds.Trades, s.now()), nil
}
