package engine

import (
	"sort"
	"time"

	"spawnpk-tradepost/internal/tradepost"
)

// TradeStatistics summarizes a normalized price series for one item.
// Derived on demand from a filtered trade set; never cached across refreshes.
type TradeStatistics struct {
	MinPrice      int64     `json:"min_price"`
	AvgPrice      float64   `json:"avg_price"`
	MaxPrice      int64     `json:"max_price"`
	MedianPrice   int64     `json:"median_price"`
	TradeCount    int       `json:"trade_count"`
	LastTradeTime time.Time `json:"last_trade_time"`
}

// Aggregate computes statistics over lot-normalized prices.
// Returns nil for an empty input: absence of data propagates as absence,
// never as a zero-valued statistic.
func Aggregate(trades []tradepost.TradeRecord) *TradeStatistics {
	return aggregate(trades, Normalize)
}

// AggregatePerUnit computes the same statistics over per-unit prices,
// for commodities priced without shop conversion.
func AggregatePerUnit(trades []tradepost.TradeRecord) *TradeStatistics {
	return aggregate(trades, NormalizePerUnit)
}

func aggregate(trades []tradepost.TradeRecord, price func(tradepost.TradeRecord) int64) *TradeStatistics {
	if len(trades) == 0 {
		return nil
	}

	sorted := make([]int64, len(trades))
	var sum float64
	for i, t := range trades {
		p := price(t)
		sorted[i] = p
		sum += float64(p)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return &TradeStatistics{
		MinPrice: sorted[0],
		MaxPrice: sorted[len(sorted)-1],
		AvgPrice: sum / float64(len(sorted)),
		// Lower-middle median: index (n-1)/2, never an average of the
		// two middle elements.
		MedianPrice: sorted[(len(sorted)-1)/2],
		TradeCount:  len(trades),
		// Input arrives in upstream delivery order; the final element is
		// taken as the latest trade without re-sorting. Callers that need
		// the true chronological maximum must sort first.
		LastTradeTime: trades[len(trades)-1].Time.Time,
	}
}
