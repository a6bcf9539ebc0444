package engine

import (
	"time"

	"spawnpk-tradepost/internal/tradepost"
)

// Window is a named relative time span restricting which trades count as
// current.
type Window string

const (
	WindowHour  Window = "1h"
	WindowDay   Window = "24h"
	WindowWeek  Window = "7d"
	WindowMonth Window = "30d"
	WindowAll   Window = "all"
)

// Windows lists the supported windows in display order.
var Windows = []Window{WindowHour, WindowDay, WindowWeek, WindowMonth, WindowAll}

// Span returns the window's duration. ok is false for WindowAll.
func (w Window) Span() (span time.Duration, ok bool) {
	switch w {
	case WindowHour:
		return time.Hour, true
	case WindowDay:
		return 24 * time.Hour, true
	case WindowWeek:
		return 7 * 24 * time.Hour, true
	case WindowMonth:
		return 30 * 24 * time.Hour, true
	}
	return 0, false
}

// Valid reports whether w is a known window name.
func (w Window) Valid() bool {
	switch w {
	case WindowHour, WindowDay, WindowWeek, WindowMonth, WindowAll:
		return true
	}
	return false
}

// FilterByWindow keeps the trades whose original timestamp falls within w,
// measured back from now. Pure: same input and window always yield the same
// subset. WindowAll returns the input slice untouched, no copy.
func FilterByWindow(trades []tradepost.TradeRecord, w Window, now time.Time) []tradepost.TradeRecord {
	span, bounded := w.Span()
	if !bounded {
		return trades
	}
	cutoff := now.Add(-span)
	var out []tradepost.TradeRecord
	for _, t := range trades {
		if !t.Time.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out
}
