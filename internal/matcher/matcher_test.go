package matcher

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"trade-coach/internal/types"
)

var base = time.Date(2024, 1, 15, 9, 15, 0, 0, time.FixedZone("IST", 19800))

func exec(symbol string, side types.Side, qty, price float64, minutes int, orderID string) types.Execution {
	return types.Execution{
		Symbol:    symbol,
		Timestamp: base.Add(time.Duration(minutes) * time.Minute),
		Side:      side,
		Quantity:  qty,
		Price:     price,
		OrderID:   orderID,
	}
}

func mustMatch(t *testing.T, execs []types.Execution) (*Matcher, []types.ClosedTrade, []types.UnmatchedSell) {
	t.Helper()
	m := New()
	closed, unmatched, err := m.Match(context.Background(), execs)
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	return m, closed, unmatched
}

func TestFIFOOrdering(t *testing.T) {
	_, closed, _ := mustMatch(t, []types.Execution{
		exec("INFY", types.Buy, 10, 100, 1, "B1"),
		exec("INFY", types.Buy, 10, 110, 2, "B2"),
		exec("INFY", types.Sell, 15, 120, 3, "S1"),
	})

	if len(closed) != 2 {
		t.Fatalf("Expected 2 closed trades, got %d", len(closed))
	}
	first, second := closed[0], closed[1]
	if first.EntryPrice != 100 || first.Quantity != 10 {
		t.Errorf("First match should consume oldest lot fully: entry=%v qty=%v", first.EntryPrice, first.Quantity)
	}
	if second.EntryPrice != 110 || second.Quantity != 5 {
		t.Errorf("Second match should take 5 from the newer lot: entry=%v qty=%v", second.EntryPrice, second.Quantity)
	}
	if first.EntryOrderID != "B1" || second.EntryOrderID != "B2" {
		t.Errorf("Entry order ids not carried through: %s, %s", first.EntryOrderID, second.EntryOrderID)
	}
}

func TestPartialFillLeavesRemainder(t *testing.T) {
	m, closed, _ := mustMatch(t, []types.Execution{
		exec("TCS", types.Buy, 100, 100, 0, "B1"),
		exec("TCS", types.Buy, 50, 102, 60, "B2"),
		exec("TCS", types.Sell, 120, 105, 240, "S1"),
	})

	if len(closed) != 2 {
		t.Fatalf("Expected 2 closed trades, got %d", len(closed))
	}
	if closed[0].Quantity != 100 || closed[0].EntryPrice != 100 {
		t.Errorf("First close wrong: qty=%v entry=%v", closed[0].Quantity, closed[0].EntryPrice)
	}
	if closed[1].Quantity != 20 || closed[1].EntryPrice != 102 {
		t.Errorf("Second close wrong: qty=%v entry=%v", closed[1].Quantity, closed[1].EntryPrice)
	}
	if got := m.OpenQuantity("TCS"); got != 30 {
		t.Errorf("Expected 30 units remaining in the second lot, got %v", got)
	}

	lots := m.OpenLots()
	if len(lots) != 1 {
		t.Fatalf("Expected exactly one open lot, got %d", len(lots))
	}
	if lots[0].OrderID != "B2" || lots[0].Price != 102 {
		t.Errorf("Remaining lot should be the newer buy: %+v", lots[0])
	}
}

func TestZeroPnLClassifiesAsLoss(t *testing.T) {
	_, closed, _ := mustMatch(t, []types.Execution{
		exec("SBIN", types.Buy, 10, 600, 0, "B1"),
		exec("SBIN", types.Sell, 10, 600, 30, "S1"),
	})

	if len(closed) != 1 {
		t.Fatalf("Expected 1 closed trade, got %d", len(closed))
	}
	if closed[0].GrossPnL != 0 {
		t.Fatalf("Expected zero P&L, got %v", closed[0].GrossPnL)
	}
	if closed[0].Result != types.Loss {
		t.Errorf("Zero P&L must classify as loss, got %q", closed[0].Result)
	}
}

func TestUnmatchedSellDoesNotFail(t *testing.T) {
	m, closed, unmatched := mustMatch(t, []types.Execution{
		exec("WIPRO", types.Sell, 25, 450, 0, "S1"),
	})

	if len(closed) != 0 {
		t.Errorf("Expected no closed trades, got %d", len(closed))
	}
	if len(unmatched) != 1 {
		t.Fatalf("Expected 1 unmatched sell, got %d", len(unmatched))
	}
	u := unmatched[0]
	if u.Symbol != "WIPRO" || u.Quantity != 25 || u.OrderID != "S1" {
		t.Errorf("Unmatched record wrong: %+v", u)
	}
	if len(m.OpenLots()) != 0 {
		t.Errorf("No lots should be open")
	}
}

func TestSellExceedingOpenLotsRecordsRemainder(t *testing.T) {
	_, closed, unmatched := mustMatch(t, []types.Execution{
		exec("HDFCBANK", types.Buy, 40, 1500, 0, "B1"),
		exec("HDFCBANK", types.Sell, 100, 1520, 60, "S1"),
	})

	if len(closed) != 1 || closed[0].Quantity != 40 {
		t.Fatalf("Expected one closed trade of 40 units, got %+v", closed)
	}
	if len(unmatched) != 1 || unmatched[0].Quantity != 60 {
		t.Fatalf("Expected unmatched remainder of 60 units, got %+v", unmatched)
	}
}

func TestEndToEndRoundTrip(t *testing.T) {
	_, closed, _ := mustMatch(t, []types.Execution{
		{
			Symbol:    "RELIANCE",
			Timestamp: time.Date(2024, 1, 15, 10, 0, 0, 0, time.FixedZone("IST", 19800)),
			Side:      types.Buy,
			Quantity:  100,
			Price:     150,
			OrderID:   "1001",
		},
		{
			Symbol:    "RELIANCE",
			Timestamp: time.Date(2024, 1, 15, 14, 0, 0, 0, time.FixedZone("IST", 19800)),
			Side:      types.Sell,
			Quantity:  100,
			Price:     155,
			OrderID:   "1002",
		},
	})

	if len(closed) != 1 {
		t.Fatalf("Expected 1 closed trade, got %d", len(closed))
	}
	tr := closed[0]
	if tr.EntryPrice != 150 || tr.ExitPrice != 155 || tr.Quantity != 100 {
		t.Errorf("Trade fields wrong: %+v", tr)
	}
	if tr.GrossPnL != 500 {
		t.Errorf("Expected gross P&L 500, got %v", tr.GrossPnL)
	}
	if tr.Result != types.Win {
		t.Errorf("Expected win, got %q", tr.Result)
	}
	if tr.HoldHours != 4.0 {
		t.Errorf("Expected 4.0 hold hours, got %v", tr.HoldHours)
	}
	if tr.EntryValue != 15000 || tr.ExitValue != 15500 {
		t.Errorf("Values wrong: entry=%v exit=%v", tr.EntryValue, tr.ExitValue)
	}
	wantPct := (155.0 - 150.0) / 150.0 * 100
	if math.Abs(tr.PnLPercentage-wantPct) > 1e-9 {
		t.Errorf("Expected pnl %% %v, got %v", wantPct, tr.PnLPercentage)
	}
}

func TestInputIsResortedByTimestamp(t *testing.T) {
	// Sell arrives first in the slice but later in time.
	_, closed, unmatched := mustMatch(t, []types.Execution{
		exec("INFY", types.Sell, 10, 1600, 120, "S1"),
		exec("INFY", types.Buy, 10, 1550, 0, "B1"),
	})

	if len(unmatched) != 0 {
		t.Fatalf("Sell should match the earlier buy after sorting, unmatched=%+v", unmatched)
	}
	if len(closed) != 1 || closed[0].EntryOrderID != "B1" {
		t.Fatalf("Expected one closed trade against B1, got %+v", closed)
	}
}

func TestSameTimestampTiesKeepInputOrder(t *testing.T) {
	// Two buys at the identical timestamp: FIFO must consume them in the
	// order they appeared in the input.
	_, closed, _ := mustMatch(t, []types.Execution{
		exec("TCS", types.Buy, 10, 101, 5, "B-first"),
		exec("TCS", types.Buy, 10, 102, 5, "B-second"),
		exec("TCS", types.Sell, 10, 110, 10, "S1"),
	})

	if len(closed) != 1 {
		t.Fatalf("Expected 1 closed trade, got %d", len(closed))
	}
	if closed[0].EntryOrderID != "B-first" || closed[0].EntryPrice != 101 {
		t.Errorf("Tie-broken order wrong: matched %s at %v", closed[0].EntryOrderID, closed[0].EntryPrice)
	}
}

func TestSymbolsAreIndependent(t *testing.T) {
	_, closed, unmatched := mustMatch(t, []types.Execution{
		exec("RELIANCE", types.Buy, 10, 2500, 0, "B1"),
		exec("TCS", types.Sell, 10, 3500, 5, "S1"),
	})

	if len(closed) != 0 {
		t.Errorf("A TCS sell must not consume a RELIANCE lot: %+v", closed)
	}
	if len(unmatched) != 1 || unmatched[0].Symbol != "TCS" {
		t.Errorf("Expected TCS unmatched sell, got %+v", unmatched)
	}
}

func TestQuantityConservation(t *testing.T) {
	execs := []types.Execution{
		exec("RELIANCE", types.Buy, 100, 2500, 0, "B1"),
		exec("RELIANCE", types.Buy, 60, 2510, 10, "B2"),
		exec("RELIANCE", types.Sell, 90, 2520, 20, "S1"),
		exec("RELIANCE", types.Sell, 120, 2530, 30, "S2"),
		exec("RELIANCE", types.Buy, 50, 2490, 40, "B3"),
	}
	m, closed, unmatched := mustMatch(t, execs)

	var bought, sold, matched, open, dropped float64
	for _, e := range execs {
		if e.Side == types.Buy {
			bought += e.Quantity
		} else {
			sold += e.Quantity
		}
	}
	for _, c := range closed {
		matched += c.Quantity
	}
	for _, l := range m.OpenLots() {
		open += l.Quantity
	}
	for _, u := range unmatched {
		dropped += u.Quantity
	}

	if matched+open != bought {
		t.Errorf("Bought units not conserved: matched=%v open=%v bought=%v", matched, open, bought)
	}
	if matched+dropped != sold {
		t.Errorf("Sold units not conserved: matched=%v dropped=%v sold=%v", matched, dropped, sold)
	}
}

func TestIdempotence(t *testing.T) {
	execs := []types.Execution{
		exec("INFY", types.Buy, 100, 1500, 0, "B1"),
		exec("INFY", types.Buy, 50, 1510, 10, "B2"),
		exec("INFY", types.Sell, 120, 1520, 20, "S1"),
		exec("TCS", types.Buy, 30, 3400, 5, "B3"),
		exec("TCS", types.Sell, 30, 3390, 30, "S2"),
	}

	_, first, _ := mustMatch(t, execs)
	_, second, _ := mustMatch(t, execs)

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("Two fresh runs on the same input differ:\n%s\n%s", a, b)
	}
}

func TestEmptyInput(t *testing.T) {
	m, closed, unmatched := mustMatch(t, nil)
	if len(closed) != 0 || len(unmatched) != 0 || len(m.OpenLots()) != 0 {
		t.Errorf("Empty input must yield empty output")
	}
	s := Summarize(closed)
	if s != (types.Summary{}) {
		t.Errorf("Empty summary should be zero-valued, got %+v", s)
	}
}

func TestMalformedRecordIsFatal(t *testing.T) {
	cases := []struct {
		name string
		e    types.Execution
	}{
		{"unknown side", exec("INFY", "hold", 10, 100, 0, "X1")},
		{"zero quantity", exec("INFY", types.Buy, 0, 100, 0, "X2")},
		{"negative price", exec("INFY", types.Buy, 10, -1, 0, "X3")},
		{"empty symbol", exec("", types.Buy, 10, 100, 0, "X4")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := New()
			if _, _, err := m.Match(context.Background(), []types.Execution{tc.e}); err == nil {
				t.Errorf("Expected contract violation error")
			}
		})
	}
}
