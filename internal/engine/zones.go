package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"spawnpk-tradepost/internal/tradepost"
)

// pricePoint is one normalized trade price with its timestamp, kept for
// recency weighting.
type pricePoint struct {
	price float64
	t     time.Time
}

// PurchaseZones are the quartile-derived price bands shown to buyers.
// Prices at or below Excellent are the best observed deals; above Avoid
// the listing is an outlier.
type PurchaseZones struct {
	Excellent  float64 `json:"excellent"`
	Good       float64 `json:"good"`
	Fair       float64 `json:"fair"`
	Overpriced float64 `json:"overpriced"`
	Avoid      float64 `json:"avoid"`
}

// WindowAnalysis is the advisory report for one item in one window.
type WindowAnalysis struct {
	HasData        bool           `json:"has_data"`
	TradeCount     int            `json:"trade_count"`
	MedianPrice    float64        `json:"median_price"`
	WeightedMedian float64        `json:"ewma_median"`
	ROI            float64        `json:"roi"`
	Confidence     float64        `json:"confidence"`
	Recommendation string         `json:"recommendation"`
	Zones          *PurchaseZones `json:"zones,omitempty"`
	MinPrice       float64        `json:"min_price"`
	MaxPrice       float64        `json:"max_price"`
	Q1             float64        `json:"q1"`
	Q3             float64        `json:"q3"`
}

const (
	ewmaAlpha      = 0.3
	outlierIQRSpan = 3.0
)

// AnalyzeWindow builds the buy-advice report for one item's trades within
// the window, measured against the shop's listed value. Extreme prices
// beyond three interquartile ranges from the quartiles are dropped before
// any statistic is computed; TradeCount still reports the untrimmed count.
func AnalyzeWindow(trades []tradepost.TradeRecord, w Window, now time.Time, shopValue int64) WindowAnalysis {
	windowed := FilterByWindow(trades, w, now)
	if len(windowed) == 0 {
		return WindowAnalysis{ROI: -100, Recommendation: "NO DATA"}
	}

	points := make([]pricePoint, 0, len(windowed))
	for _, t := range windowed {
		points = append(points, pricePoint{price: float64(Normalize(t)), t: t.Time.Time})
	}
	points = trimOutliers(points)

	sorted := make([]float64, len(points))
	for i, p := range points {
		sorted[i] = p.price
	}
	sort.Float64s(sorted)

	q1 := quantile(sorted, 0.25)
	q2 := quantile(sorted, 0.5)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	zones := &PurchaseZones{
		Excellent:  q1,
		Good:       q2 - 0.25*iqr,
		Fair:       q2 + 0.25*iqr,
		Overpriced: q3,
		Avoid:      q3 + 0.5*iqr,
	}

	weighted := ewmaMedian(points)
	roi := -100.0
	if shopValue > 0 {
		roi = (weighted - float64(shopValue)) / float64(shopValue) * 100
	}
	conf := confidenceScore(points, sorted)

	return WindowAnalysis{
		HasData:        true,
		TradeCount:     len(windowed),
		MedianPrice:    q2,
		WeightedMedian: weighted,
		ROI:            roi,
		Confidence:     conf,
		Recommendation: recommend(roi, weighted, zones),
		Zones:          zones,
		MinPrice:       sorted[0],
		MaxPrice:       sorted[len(sorted)-1],
		Q1:             q1,
		Q3:             q3,
	}
}

// quantile interpolates linearly between the closest ranks of an already
// sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// trimOutliers drops prices further than three interquartile ranges
// outside the quartiles. If everything would be dropped the input is
// returned unchanged.
func trimOutliers(points []pricePoint) []pricePoint {
	if len(points) == 0 {
		return points
	}
	sorted := make([]float64, len(points))
	for i, p := range points {
		sorted[i] = p.price
	}
	sort.Float64s(sorted)
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	lo := q1 - outlierIQRSpan*iqr
	hi := q3 + outlierIQRSpan*iqr

	kept := make([]pricePoint, 0, len(points))
	for _, p := range points {
		if p.price >= lo && p.price <= hi {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return points
	}
	return kept
}

// ewmaMedian is the recency-weighted median. Trades are ordered by time,
// the newest carries full weight and each older one decays by (1-alpha).
// The result is the lowest price whose cumulative normalized weight
// reaches one half.
func ewmaMedian(points []pricePoint) float64 {
	n := len(points)
	if n == 0 {
		return 0
	}
	byTime := append([]pricePoint(nil), points...)
	sort.SliceStable(byTime, func(i, j int) bool { return byTime[i].t.Before(byTime[j].t) })

	type weighted struct {
		price  float64
		weight float64
	}
	ws := make([]weighted, n)
	var total float64
	for i, p := range byTime {
		wgt := math.Pow(1-ewmaAlpha, float64(n-i-1))
		ws[i] = weighted{price: p.price, weight: wgt}
		total += wgt
	}
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].price < ws[j].price })

	var cum float64
	for _, wp := range ws {
		cum += wp.weight / total
		if cum >= 0.5 {
			return wp.price
		}
	}
	return ws[n-1].price
}

// confidenceScore blends sample size, price stability and liquidity into
// a 0..100 score. Each term saturates rather than growing without bound.
func confidenceScore(points []pricePoint, sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	sample := 40 * (1 - math.Exp(-float64(n)/50))

	var mean float64
	for _, p := range sorted {
		mean += p
	}
	mean /= float64(n)
	cv := 100.0
	if mean > 0 && n > 1 {
		var variance float64
		for _, p := range sorted {
			d := p - mean
			variance += d * d
		}
		variance /= float64(n - 1)
		cv = math.Sqrt(variance) / mean * 100
	}
	stability := 30 * math.Exp(-cv/50)

	liquidity := 30 * (1 - math.Exp(-float64(n)/float64(2*activeDays(points))))

	return math.Min(100, math.Max(0, sample+stability+liquidity))
}

// activeDays is the whole-day span between the oldest and newest trade,
// never less than one.
func activeDays(points []pricePoint) int {
	var min, max time.Time
	for _, p := range points {
		if p.t.IsZero() {
			continue
		}
		if min.IsZero() || p.t.Before(min) {
			min = p.t
		}
		if max.IsZero() || p.t.After(max) {
			max = p.t
		}
	}
	days := 0
	if !min.IsZero() {
		days = int(max.Sub(min).Hours() / 24)
	}
	if days < 1 {
		return 1
	}
	return days
}

// recommend maps ROI and the weighted median's position among the zones
// to the advisory label.
func recommend(roi, weighted float64, zones *PurchaseZones) string {
	switch {
	case roi < -15:
		return fmt.Sprintf("AVOID - Loss %.1f%%", roi)
	case roi < 0:
		return "MARGINAL - Break even difficult"
	case weighted <= zones.Excellent:
		return fmt.Sprintf("BUY NOW - Excellent price (< %.0f)", zones.Excellent)
	case weighted <= zones.Good:
		return fmt.Sprintf("BUY if < %.0f", zones.Good)
	case weighted <= zones.Fair:
		return fmt.Sprintf("FAIR if < %.0f", zones.Fair)
	}
	return fmt.Sprintf("WAIT - Overpriced (fair < %.0f)", zones.Fair)
}
