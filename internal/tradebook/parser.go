package tradebook

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"trade-coach/internal/types"
)

// IST is the exchange timezone for NSE/BSE tradebooks.
var IST = time.FixedZone("IST", 19800)

// Row mirrors one line of a Zerodha-style tradebook CSV. Parsing keeps the
// raw strings so a single bad cell drops one row instead of failing the
// whole file.
type Row struct {
	Symbol             string `csv:"symbol"`
	ISIN               string `csv:"isin"`
	TradeDate          string `csv:"trade_date"`
	Exchange           string `csv:"exchange"`
	Segment            string `csv:"segment"`
	Series             string `csv:"series"`
	TradeType          string `csv:"trade_type"`
	Auction            string `csv:"auction"`
	Quantity           string `csv:"quantity"`
	Price              string `csv:"price"`
	TradeID            string `csv:"trade_id"`
	OrderID            string `csv:"order_id"`
	OrderExecutionTime string `csv:"order_execution_time"`
}

var requiredColumns = []string{
	"symbol", "trade_date", "order_execution_time",
	"trade_type", "quantity", "price", "order_id",
}

// Parser validates and normalizes raw tradebook rows into executions the
// matcher can trust: uppercase symbol, lowercase side, positive numeric
// quantity and price, IST timestamps, sorted by time with stable ties.
type Parser struct {
	loc *time.Location
}

func NewParser() *Parser {
	return &Parser{loc: IST}
}

// Result carries the normalized executions plus counts for rows the parser
// had to discard.
type Result struct {
	Executions []types.Execution
	Dropped    int
}

func (p *Parser) ParseFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tradebook: %w", err)
	}
	return p.Parse(bytes.NewReader(data))
}

func (p *Parser) Parse(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if err := checkHeader(data); err != nil {
		return nil, err
	}

	var rows []Row
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("parse tradebook csv: %w", err)
	}

	res := &Result{}
	for _, row := range rows {
		e, err := p.normalize(row)
		if err != nil {
			res.Dropped++
			continue
		}
		res.Executions = append(res.Executions, e)
	}

	sort.SliceStable(res.Executions, func(i, j int) bool {
		return res.Executions[i].Timestamp.Before(res.Executions[j].Timestamp)
	})
	return res, nil
}

func checkHeader(data []byte) error {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return fmt.Errorf("read tradebook header: %w", err)
	}
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[strings.TrimSpace(strings.ToLower(col))] = true
	}
	var missing []string
	for _, col := range requiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("tradebook missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (p *Parser) normalize(row Row) (types.Execution, error) {
	symbol := strings.ToUpper(strings.TrimSpace(row.Symbol))
	if symbol == "" {
		return types.Execution{}, fmt.Errorf("empty symbol")
	}

	side := types.Side(strings.ToLower(strings.TrimSpace(row.TradeType)))
	if side != types.Buy && side != types.Sell {
		return types.Execution{}, fmt.Errorf("unknown trade_type %q", row.TradeType)
	}

	qty, err := strconv.ParseFloat(strings.TrimSpace(row.Quantity), 64)
	if err != nil || qty <= 0 {
		return types.Execution{}, fmt.Errorf("bad quantity %q", row.Quantity)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(row.Price), 64)
	if err != nil || price <= 0 {
		return types.Execution{}, fmt.Errorf("bad price %q", row.Price)
	}

	orderID := strings.TrimSpace(row.OrderID)
	if orderID == "" {
		return types.Execution{}, fmt.Errorf("empty order_id")
	}

	ts, err := p.parseTimestamp(row.TradeDate, row.OrderExecutionTime)
	if err != nil {
		return types.Execution{}, err
	}

	return types.Execution{
		Symbol:    symbol,
		Timestamp: ts,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		OrderID:   orderID,
	}, nil
}

// parseTimestamp accepts either a full datetime in order_execution_time
// (the format Zerodha exports) or a bare time of day combined with
// trade_date.
func (p *Parser) parseTimestamp(tradeDate, execTime string) (time.Time, error) {
	execTime = strings.TrimSpace(execTime)
	tradeDate = strings.TrimSpace(tradeDate)

	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if ts, err := time.ParseInLocation(layout, execTime, p.loc); err == nil {
			return ts, nil
		}
	}
	if combined := tradeDate + " " + execTime; tradeDate != "" {
		if ts, err := time.ParseInLocation("2006-01-02 15:04:05", combined, p.loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable execution time %q (trade_date %q)", execTime, tradeDate)
}

// WriteFile writes rows back out as a tradebook CSV (used by the demo
// generator and the Kite importer).
func WriteFile(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create tradebook: %w", err)
	}
	defer f.Close()
	return gocsv.MarshalFile(&rows, f)
}
