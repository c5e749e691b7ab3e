package matcher

import (
	"context"
	"fmt"
	"sort"
	"time"

	"trade-coach/internal/logger"
	"trade-coach/internal/types"
)

// openLot is the remainder of a buy execution awaiting FIFO consumption.
// Invariant: qty > 0 for every lot held in a queue.
type openLot struct {
	qty     float64
	price   float64
	ts      time.Time
	orderID string
}

// Matcher converts an execution stream into closed round-trip trades using
// strict FIFO lot accounting. A Matcher holds the state of exactly one run;
// create a fresh one per tradebook rather than reusing state across inputs.
type Matcher struct {
	lots      map[string][]openLot
	closed    []types.ClosedTrade
	unmatched []types.UnmatchedSell
}

func New() *Matcher {
	return &Matcher{
		lots: make(map[string][]openLot),
	}
}

// Match processes the executions in timestamp order and returns the closed
// trades in match order, plus any unmatched sell remainders. Input need not
// be pre-sorted; ties keep their original relative order so the result is
// deterministic for identical input.
//
// The executions are trusted to be normalized (see internal/tradebook). A
// record that violates that contract yields an error immediately rather
// than silently wrong metrics.
func (m *Matcher) Match(ctx context.Context, execs []types.Execution) ([]types.ClosedTrade, []types.UnmatchedSell, error) {
	sorted := make([]types.Execution, len(execs))
	copy(sorted, execs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	for i, e := range sorted {
		if err := checkRecord(e); err != nil {
			return nil, nil, fmt.Errorf("execution %d (order %s): %w", i, e.OrderID, err)
		}
		switch e.Side {
		case types.Buy:
			m.processBuy(e)
		case types.Sell:
			m.processSell(ctx, e)
		}
	}

	return m.closed, m.unmatched, nil
}

func checkRecord(e types.Execution) error {
	if e.Symbol == "" {
		return fmt.Errorf("empty symbol")
	}
	if e.Side != types.Buy && e.Side != types.Sell {
		return fmt.Errorf("unknown side %q", e.Side)
	}
	if e.Quantity <= 0 {
		return fmt.Errorf("non-positive quantity %v", e.Quantity)
	}
	if e.Price <= 0 {
		return fmt.Errorf("non-positive price %v", e.Price)
	}
	return nil
}

// processBuy appends a new open lot. No matching happens on buys.
func (m *Matcher) processBuy(e types.Execution) {
	m.lots[e.Symbol] = append(m.lots[e.Symbol], openLot{
		qty:     e.Quantity,
		price:   e.Price,
		ts:      e.Timestamp,
		orderID: e.OrderID,
	})
}

// processSell consumes open lots oldest-first, emitting one closed trade per
// lot consumed (or partially consumed). A remainder with no lot left to
// absorb it is recorded as an unmatched sell; the engine does not track
// short positions.
func (m *Matcher) processSell(ctx context.Context, e types.Execution) {
	queue := m.lots[e.Symbol]
	remaining := e.Quantity

	for remaining > 0 && len(queue) > 0 {
		lot := &queue[0]
		match := remaining
		if lot.qty < match {
			match = lot.qty
		}

		m.closed = append(m.closed, newClosedTrade(e, *lot, match))

		lot.qty -= match
		remaining -= match
		if lot.qty <= 0 {
			queue = queue[1:]
		}
	}
	m.lots[e.Symbol] = queue

	if remaining > 0 {
		logger.Warn(ctx, "Sell without open position",
			"symbol", e.Symbol,
			"order_id", e.OrderID,
			"unmatched_qty", remaining,
		)
		m.unmatched = append(m.unmatched, types.UnmatchedSell{
			Symbol:    e.Symbol,
			Timestamp: e.Timestamp,
			Quantity:  remaining,
			Price:     e.Price,
			OrderID:   e.OrderID,
		})
	}
}

// newClosedTrade builds the immutable match record with its derived
// metrics. Zero P&L classifies as a loss; there is no neutral category.
func newClosedTrade(sell types.Execution, lot openLot, qty float64) types.ClosedTrade {
	grossPnL := (sell.Price - lot.price) * qty
	result := types.Loss
	if grossPnL > 0 {
		result = types.Win
	}
	return types.ClosedTrade{
		Symbol:        sell.Symbol,
		EntryDatetime: lot.ts,
		ExitDatetime:  sell.Timestamp,
		EntryPrice:    lot.price,
		ExitPrice:     sell.Price,
		Quantity:      qty,
		EntryOrderID:  lot.orderID,
		ExitOrderID:   sell.OrderID,
		GrossPnL:      grossPnL,
		PnLPercentage: (sell.Price - lot.price) / lot.price * 100,
		HoldHours:     sell.Timestamp.Sub(lot.ts).Hours(),
		Result:        result,
		EntryValue:    lot.price * qty,
		ExitValue:     sell.Price * qty,
	}
}

// OpenLots returns the lots still open after the run, ordered by symbol and
// entry time. Together with the closed trades and unmatched remainders this
// accounts for every bought unit.
func (m *Matcher) OpenLots() []types.OpenLot {
	symbols := make([]string, 0, len(m.lots))
	for s, q := range m.lots {
		if len(q) > 0 {
			symbols = append(symbols, s)
		}
	}
	sort.Strings(symbols)

	var out []types.OpenLot
	for _, s := range symbols {
		for _, lot := range m.lots[s] {
			out = append(out, types.OpenLot{
				Symbol:    s,
				Quantity:  lot.qty,
				Price:     lot.price,
				Timestamp: lot.ts,
				OrderID:   lot.orderID,
			})
		}
	}
	return out
}

// OpenQuantity returns the total remaining quantity for one symbol.
func (m *Matcher) OpenQuantity(symbol string) float64 {
	var total float64
	for _, lot := range m.lots[symbol] {
		total += lot.qty
	}
	return total
}
