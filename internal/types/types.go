package types

import "time"

// Side is the direction of an execution, lowercase as normalized by the
// tradebook parser.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Execution is one fill from a brokerage tradebook, already validated and
// normalized: symbol uppercase, side lowercase, quantity and price positive.
type Execution struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Side      Side      `json:"side"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	OrderID   string    `json:"order_id"`
}

// TradeResult classifies a closed trade. Zero P&L counts as a loss.
type TradeResult string

const (
	Win  TradeResult = "win"
	Loss TradeResult = "loss"
)

// ClosedTrade is one FIFO match event: a sell spanning several open lots
// produces several closed trades, one per lot consumed.
type ClosedTrade struct {
	Symbol        string      `json:"symbol"`
	EntryDatetime time.Time   `json:"entry_datetime"`
	ExitDatetime  time.Time   `json:"exit_datetime"`
	EntryPrice    float64     `json:"entry_price"`
	ExitPrice     float64     `json:"exit_price"`
	Quantity      float64     `json:"quantity"`
	EntryOrderID  string      `json:"entry_order_id"`
	ExitOrderID   string      `json:"exit_order_id"`
	GrossPnL      float64     `json:"gross_pnl"`
	PnLPercentage float64     `json:"pnl_percentage"`
	HoldHours     float64     `json:"hold_hours"`
	Result        TradeResult `json:"trade_result"`
	EntryValue    float64     `json:"entry_value"`
	ExitValue     float64     `json:"exit_value"`
}

// OpenLot is the unmatched remainder of a buy after a matching run.
type OpenLot struct {
	Symbol    string    `json:"symbol"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	OrderID   string    `json:"order_id"`
}

// UnmatchedSell records the portion of a sell that found no open lot.
// Data-quality signal, not an error: the tradebook may start mid-position.
type UnmatchedSell struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	OrderID   string    `json:"order_id"`
}

// Summary aggregates a closed-trade collection. All fields are zero for an
// empty run.
type Summary struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalPnL      float64 `json:"total_pnl"`
	AvgPnL        float64 `json:"avg_pnl"`
	MaxProfit     float64 `json:"max_profit"`
	MaxLoss       float64 `json:"max_loss"`
	AvgHoldHours  float64 `json:"avg_hold_hours"`
	TotalVolume   float64 `json:"total_volume"`
}

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// Interval is a candle resolution understood by the price sources.
type Interval string

const (
	Interval15Min Interval = "15m"
	IntervalHour  Interval = "1h"
	IntervalDay   Interval = "1d"
)

// ExitPoint is one hypothetical exit for a closed trade.
type ExitPoint struct {
	Price        float64   `json:"price"`
	PotentialPnL float64   `json:"potential_pnl"`
	Time         time.Time `json:"time"`
}

// ExitScenarios compares a trade's actual exit against what the price path
// made possible. Nil fields mean the scenario could not be evaluated.
type ExitScenarios struct {
	BestEarlyExit *ExitPoint `json:"best_early_exit,omitempty"`
	BestLateExit  *ExitPoint `json:"best_late_exit,omitempty"`
	TrailingStop  *ExitPoint `json:"trailing_stop,omitempty"`
	// std dev of closes from entry to the actual exit
	PriceVolatility float64 `json:"price_volatility"`
}

// TechnicalSnapshot is the indicator state of a symbol around a given day.
type TechnicalSnapshot struct {
	RSI         float64 `json:"rsi"`
	SMA10       float64 `json:"sma_10"`
	SMA20       float64 `json:"sma_20"`
	VWAP        float64 `json:"vwap"`
	VolumeRatio float64 `json:"volume_ratio"`
}

// Insight is one coaching observation derived from closed trades.
type Insight struct {
	Title       string         `json:"title"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Action      string         `json:"action"`
	Data        map[string]any `json:"data,omitempty"`
}

// CoachCard is one of the eight fixed coach report cards. Data carries the
// card-specific payload; consumers treat cards as read-only.
type CoachCard struct {
	Title   string         `json:"title"`
	Type    string         `json:"type"`
	Insight string         `json:"insight"`
	Action  string         `json:"action"`
	Data    map[string]any `json:"data,omitempty"`
}
