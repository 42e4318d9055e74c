package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market tells which exchange family a ticker belongs to.
type Market string

const (
	MarketDomestic Market = "domestic" // Taiwan listed (TWSE / TPEx)
	MarketForeign  Market = "foreign"  // overseas listed
)

// Direction is the side of a price alert.
type Direction string

const (
	DirectionBuy  Direction = "buy"  // fires when price falls to the threshold
	DirectionSell Direction = "sell" // fires when price rises to the threshold
)

type AlertRecord struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"user_id"`
	Ticker    string          `json:"ticker"`
	Market    Market          `json:"market"`
	Threshold decimal.Decimal `json:"threshold_price"`
	Direction Direction       `json:"direction"`
	CreatedAt string          `json:"created_at"`
}

// Crossed reports whether price satisfies the alert condition. Threshold
// equality counts as crossed on both sides.
func (a AlertRecord) Crossed(price decimal.Decimal) bool {
	switch a.Direction {
	case DirectionBuy:
		return price.LessThanOrEqual(a.Threshold)
	case DirectionSell:
		return price.GreaterThanOrEqual(a.Threshold)
	}
	return false
}

type Quote struct {
	Ticker    string          `json:"ticker"`
	Symbol    string          `json:"symbol"` // resolved provider symbol, e.g. 2330.TW
	Market    Market          `json:"market"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	ChangePct decimal.Decimal `json:"change_pct"`
	PrevClose decimal.Decimal `json:"prev_close"`
	Volume    int64           `json:"volume"`
	Time      time.Time       `json:"time"`
}
