package tradebook

import (
	"testing"
	"time"

	"trade-coach/internal/types"
)

func TestKiteSide(t *testing.T) {
	cases := map[string]types.Side{
		"BUY":   types.Buy,
		"SELL":  types.Sell,
		" buy ": types.Buy,
	}
	for in, want := range cases {
		got, err := kiteSide(in)
		if err != nil || got != want {
			t.Errorf("kiteSide(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := kiteSide("SHORT"); err == nil {
		t.Fatal("expected error for unknown transaction type")
	}
}

func TestNewKiteSourceRequiresCredentials(t *testing.T) {
	if _, err := NewKiteSource("", "token"); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewKiteSource("key", ""); err == nil {
		t.Fatal("expected error for missing access token")
	}
	if _, err := NewKiteSource("key", "token"); err != nil {
		t.Fatalf("NewKiteSource: %v", err)
	}
}

func TestRowsRoundTripThroughParser(t *testing.T) {
	execs := []types.Execution{{
		Symbol:    "RELIANCE",
		Timestamp: time.Date(2025, 6, 2, 10, 15, 0, 0, IST),
		Side:      types.Buy,
		Quantity:  100,
		Price:     1500.5,
		OrderID:   "ORD1",
	}}

	rows := Rows(execs)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	r := rows[0]
	if r.TradeType != "buy" || r.Quantity != "100" || r.Price != "1500.5" {
		t.Fatalf("unexpected row: %+v", r)
	}
	if r.OrderExecutionTime != "2025-06-02T10:15:00" {
		t.Fatalf("execution time = %s", r.OrderExecutionTime)
	}

	// The parser must accept what Rows produces.
	back, err := NewParser().normalize(r)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if back.Symbol != "RELIANCE" || !back.Timestamp.Equal(execs[0].Timestamp) {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}
