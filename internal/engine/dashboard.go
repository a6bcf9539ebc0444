package engine

import (
	"math"
	"sort"
	"time"

	"spawnpk-tradepost/internal/config"
	"spawnpk-tradepost/internal/tradepost"
)

// OverallStats summarizes an item's whole trade history against its shop
// value, independent of any window.
type OverallStats struct {
	ROIMedian   float64 `json:"roi_median"`
	Volatility  float64 `json:"volatility"`
	Liquidity   float64 `json:"liquidity"`
	Trend       float64 `json:"trend"`
	Reliability float64 `json:"reliability"`
	TotalTrades int     `json:"total_trades"`
}

// DashboardItem is one shop item's full analysis bundle: overall metrics
// plus every window's advisory report.
type DashboardItem struct {
	ItemID           int32                     `json:"item_id,omitempty"`
	Name             string                    `json:"name"`
	ShopCost         int64                     `json:"shop_cost"`
	HasTrades        bool                      `json:"has_trades"`
	PerformanceScore float64                   `json:"performance_score"`
	Overall          *OverallStats             `json:"overall_stats,omitempty"`
	Windows          map[Window]WindowAnalysis `json:"time_windows"`
}

// CurrencyBoard groups a shop currency's items, best performers first.
type CurrencyBoard struct {
	Currency string          `json:"currency"`
	Items    []DashboardItem `json:"items"`
}

// TopPerformer is the condensed header-card view of a leading item.
type TopPerformer struct {
	ItemID             int32   `json:"item_id,omitempty"`
	Name               string  `json:"name"`
	ShopCost           int64   `json:"shop_cost"`
	ROI                float64 `json:"roi"`
	ConfidenceWeek     float64 `json:"confidence_7d"`
	RecommendationWeek string  `json:"recommendation_7d"`
}

// Dashboard is the complete frontend payload.
type Dashboard struct {
	GeneratedAt   time.Time                 `json:"generated_at"`
	TotalItems    int                       `json:"total_items"`
	ActiveItems   int                       `json:"active_items"`
	Windows       []Window                  `json:"time_windows"`
	Currencies    map[string]*CurrencyBoard `json:"currencies"`
	TopPerformers map[string][]TopPerformer `json:"top_performers"`
}

const topPerformerLimit = 20

// BuildDashboard analyzes every shop item across all windows and ranks
// each currency's items by performance score.
func BuildDashboard(shops []config.ShopConfig, trades []tradepost.TradeRecord, now time.Time) *Dashboard {
	d := &Dashboard{
		GeneratedAt:   now,
		Windows:       Windows,
		Currencies:    make(map[string]*CurrencyBoard, len(shops)),
		TopPerformers: make(map[string][]TopPerformer, len(shops)),
	}

	for _, shop := range shops {
		board := d.Currencies[shop.Currency]
		if board == nil {
			board = &CurrencyBoard{Currency: shop.Currency}
			d.Currencies[shop.Currency] = board
		}
		for _, item := range shop.Items {
			matched := MatchTrades(trades, item)

			entry := DashboardItem{
				ItemID:   item.ItemID,
				Name:     item.ItemName,
				ShopCost: item.Value,
				Windows:  make(map[Window]WindowAnalysis, len(Windows)),
			}
			for _, w := range Windows {
				entry.Windows[w] = AnalyzeWindow(matched, w, now, item.Value)
			}
			if overall := computeOverallStats(matched, item.Value); overall != nil {
				entry.HasTrades = true
				entry.Overall = overall
				entry.PerformanceScore = performanceScore(overall)
				d.ActiveItems++
			}
			board.Items = append(board.Items, entry)
			d.TotalItems++
		}
	}

	for _, board := range d.Currencies {
		sort.SliceStable(board.Items, func(i, j int) bool {
			return board.Items[i].PerformanceScore > board.Items[j].PerformanceScore
		})
		d.TopPerformers[board.Currency] = topPerformers(board.Items)
	}
	return d
}

// performanceScore is the composite ranking metric: median ROI weighted
// heaviest, then reliability, liquidity, trend, with volatility as a
// penalty.
func performanceScore(s *OverallStats) float64 {
	return s.ROIMedian*0.35 +
		s.Reliability*0.25 +
		s.Liquidity*5 +
		s.Trend*0.1 -
		s.Volatility*0.05
}

func topPerformers(items []DashboardItem) []TopPerformer {
	var out []TopPerformer
	for _, item := range items {
		if len(out) == topPerformerLimit {
			break
		}
		if !item.HasTrades {
			continue
		}
		week := item.Windows[WindowWeek]
		out = append(out, TopPerformer{
			ItemID:             item.ItemID,
			Name:               item.Name,
			ShopCost:           item.ShopCost,
			ROI:                item.Overall.ROIMedian,
			ConfidenceWeek:     week.Confidence,
			RecommendationWeek: week.Recommendation,
		})
	}
	return out
}

// computeOverallStats builds the all-history metrics for one item. Nil
// when the item never traded. Outliers are trimmed before price
// statistics, but TotalTrades and liquidity count every trade.
func computeOverallStats(trades []tradepost.TradeRecord, shopValue int64) *OverallStats {
	if len(trades) == 0 || shopValue <= 0 {
		return nil
	}

	points := make([]pricePoint, 0, len(trades))
	for _, t := range trades {
		points = append(points, pricePoint{price: float64(Normalize(t)), t: t.Time.Time})
	}
	clean := trimOutliers(points)

	sorted := make([]float64, len(clean))
	for i, p := range clean {
		sorted[i] = p.price
	}
	sort.Float64s(sorted)

	value := float64(shopValue)
	median := quantile(sorted, 0.5)

	var mean float64
	for _, p := range sorted {
		mean += p
	}
	mean /= float64(len(sorted))
	cv := 0.0
	if mean > 0 && len(sorted) > 1 {
		var variance float64
		for _, p := range sorted {
			d := p - mean
			variance += d * d
		}
		variance /= float64(len(sorted) - 1)
		cv = math.Sqrt(variance) / mean * 100
	}

	profitable := 0
	for _, p := range sorted {
		if p > value {
			profitable++
		}
	}

	return &OverallStats{
		ROIMedian:   (median - value) / value * 100,
		Volatility:  cv,
		Liquidity:   float64(len(trades)) / float64(activeDays(clean)),
		Trend:       priceTrend(clean, mean),
		Reliability: float64(profitable) / float64(len(sorted)) * 100,
		TotalTrades: len(trades),
	}
}

// priceTrend compares the average price of the oldest and newest quarter
// of the series, as a percent change. Short series fall back to halves.
func priceTrend(points []pricePoint, mean float64) float64 {
	byTime := append([]pricePoint(nil), points...)
	sort.SliceStable(byTime, func(i, j int) bool { return byTime[i].t.Before(byTime[j].t) })

	segAvg := func(seg []pricePoint) float64 {
		if len(seg) == 0 {
			return mean
		}
		var sum float64
		for _, p := range seg {
			sum += p.price
		}
		return sum / float64(len(seg))
	}

	var first, last float64
	if n := len(byTime); n >= 4 {
		q := n / 4
		first = segAvg(byTime[:q])
		last = segAvg(byTime[3*q:])
	} else {
		half := n / 2
		first = segAvg(byTime[:half])
		last = segAvg(byTime[half:])
	}
	if first <= 0 {
		return 0
	}
	return (last - first) / first * 100
}
