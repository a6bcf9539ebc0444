package tradepost

import (
	"encoding/json"
	"time"
)

// Currency identifies the unit a trade's price is denominated in.
type Currency int

const (
	// CurrencyPrimary is plain coins.
	CurrencyPrimary Currency = 0
	// CurrencySecondary is blood shards. Prices in this currency are
	// converted to coins with engine.SecondaryUnitValue.
	CurrencySecondary Currency = 1
)

// TimeLayout is the trading post's timestamp format (microsecond precision).
const TimeLayout = "2006-01-02 15:04:05.000000"

const timeLayoutNoFrac = "2006-01-02 15:04:05"

// TradeTime wraps time.Time with the trading post's JSON encoding.
// An unparseable timestamp decodes to the zero time rather than failing the
// whole page; the upstream occasionally emits malformed values.
type TradeTime struct {
	time.Time
}

func (t *TradeTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(TimeLayout, s)
	if err != nil {
		parsed, err = time.Parse(timeLayoutNoFrac, s)
	}
	if err != nil {
		t.Time = time.Time{}
		return nil
	}
	t.Time = parsed
	return nil
}

func (t TradeTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(TimeLayout))
}

// TradeRecord mirrors one element of the trading post search response.
// Records are never mutated after parsing. ItemID is 0 when the upstream
// omits it.
type TradeRecord struct {
	ItemName string    `json:"item_name"`
	ItemID   int32     `json:"item_id,omitempty"`
	Seller   string    `json:"seller"`
	Buyer    string    `json:"buyer"`
	Price    int64     `json:"price"`
	Currency Currency  `json:"currency"`
	Amount   int64     `json:"amount"`
	Time     TradeTime `json:"time"`
}
