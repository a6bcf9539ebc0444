package engine

import "spawnpk-tradepost/internal/tradepost"

// SecondaryUnitValue is the coin value of one blood shard. Trading post
// prices denominated in shards are converted to coins at this fixed rate
// so that every price in the system lives in a single unit of account.
const SecondaryUnitValue int64 = 100_000_000

func currencyRate(c tradepost.Currency) int64 {
	if c == tradepost.CurrencySecondary {
		return SecondaryUnitValue
	}
	return 1
}

// Normalize converts a trade's price to coins for the whole lot
// (currency rate and lot amount applied). Every statistic, comparison,
// and ranking in this package routes through Normalize or NormalizePerUnit;
// nothing else applies the currency rate.
func Normalize(t tradepost.TradeRecord) int64 {
	return t.Price * currencyRate(t.Currency) * t.Amount
}

// NormalizePerUnit converts a trade's price to coins for a single unit of
// the traded item, ignoring lot size. Used where a per-unit price is needed
// (the raw commodity leg of the bloodchanting recipe); not interchangeable
// with Normalize.
func NormalizePerUnit(t tradepost.TradeRecord) int64 {
	return t.Price * currencyRate(t.Currency)
}
