package tradebook

import (
	"strings"
	"testing"
	"time"

	"trade-coach/internal/types"
)

const sampleCSV = `symbol,isin,trade_date,exchange,segment,series,trade_type,auction,quantity,price,trade_id,order_id,order_execution_time
 reliance ,INE002A01018,2024-01-01,NSE,EQ,EQ,BUY,false,10,2500.00,5001,1001,2024-01-01T10:00:00
RELIANCE,INE002A01018,2024-01-01,NSE,EQ,EQ,sell,false,10,2550.00,5002,1002,2024-01-01T14:00:00
TCS,INE467B01029,2024-01-02,NSE,EQ,EQ,buy,false,5,3500.00,5003,1003,09:30:00
TCS,INE467B01029,2024-01-02,NSE,EQ,EQ,sell,false,5,3450.00,5004,1004,15:00:00
`

func TestParseNormalizes(t *testing.T) {
	p := NewParser()
	res, err := p.Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(res.Executions) != 4 {
		t.Fatalf("Expected 4 executions, got %d", len(res.Executions))
	}
	if res.Dropped != 0 {
		t.Errorf("Expected no dropped rows, got %d", res.Dropped)
	}

	first := res.Executions[0]
	if first.Symbol != "RELIANCE" {
		t.Errorf("Symbol should be uppercased and trimmed, got %q", first.Symbol)
	}
	if first.Side != types.Buy {
		t.Errorf("Side should be lowercased, got %q", first.Side)
	}
	if first.Quantity != 10 || first.Price != 2500 {
		t.Errorf("Numeric fields wrong: qty=%v price=%v", first.Quantity, first.Price)
	}

	want := time.Date(2024, 1, 1, 10, 0, 0, 0, IST)
	if !first.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", first.Timestamp, want)
	}

	// Bare time-of-day rows combine with trade_date.
	third := res.Executions[2]
	wantTCS := time.Date(2024, 1, 2, 9, 30, 0, 0, IST)
	if !third.Timestamp.Equal(wantTCS) {
		t.Errorf("Combined timestamp = %v, want %v", third.Timestamp, wantTCS)
	}
}

func TestParseSortsByTimestamp(t *testing.T) {
	csvData := `symbol,trade_date,order_execution_time,trade_type,quantity,price,order_id
INFY,2024-01-02,10:00:00,sell,5,1500,B
INFY,2024-01-01,10:00:00,buy,5,1450,A
`
	res, err := NewParser().Parse(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(res.Executions) != 2 {
		t.Fatalf("Expected 2 executions, got %d", len(res.Executions))
	}
	if res.Executions[0].OrderID != "A" {
		t.Errorf("Executions should be time-sorted, first order = %s", res.Executions[0].OrderID)
	}
}

func TestParseDropsBadRows(t *testing.T) {
	csvData := `symbol,trade_date,order_execution_time,trade_type,quantity,price,order_id
INFY,2024-01-01,10:00:00,buy,5,1450,A
INFY,2024-01-01,10:05:00,buy,abc,1450,B
INFY,2024-01-01,10:10:00,hold,5,1450,C
,2024-01-01,10:15:00,buy,5,1450,D
INFY,2024-01-01,10:20:00,sell,5,-3,E
INFY,2024-01-01,not-a-time,sell,5,1460,F
`
	res, err := NewParser().Parse(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(res.Executions) != 1 {
		t.Fatalf("Expected 1 surviving execution, got %d", len(res.Executions))
	}
	if res.Dropped != 5 {
		t.Errorf("Expected 5 dropped rows, got %d", res.Dropped)
	}
}

func TestParseMissingColumnIsError(t *testing.T) {
	csvData := `symbol,trade_date,trade_type,quantity,price
INFY,2024-01-01,buy,5,1450
`
	if _, err := NewParser().Parse(strings.NewReader(csvData)); err == nil {
		t.Fatal("Expected an error for missing required columns")
	}
}
