package tradebook

import (
	"context"
	"fmt"
	"sort"
	"strings"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"trade-coach/internal/interfaces"
	"trade-coach/internal/logger"
	"trade-coach/internal/types"
)

// KiteSource pulls the day's executions straight from the Zerodha Kite API
// instead of a downloaded tradebook CSV. Kite only serves the current
// session's trades, so this covers intraday coaching.
type KiteSource struct {
	kc *kiteconnect.Client
}

var _ interfaces.ExecutionSource = (*KiteSource)(nil)

func NewKiteSource(apiKey, accessToken string) (*KiteSource, error) {
	if apiKey == "" || accessToken == "" {
		return nil, fmt.Errorf("kite: api key and access token are required")
	}
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)
	return &KiteSource{kc: kc}, nil
}

// Executions fetches today's fills and normalizes them to the matcher's
// contract: uppercase symbol, lowercase side, IST timestamps, sorted.
func (k *KiteSource) Executions(ctx context.Context) ([]types.Execution, error) {
	timer := logger.StartOperation(ctx, "kite.executions")

	trades, err := k.kc.GetTrades()
	if err != nil {
		timer.EndWithError(err)
		return nil, fmt.Errorf("kite get trades: %w", err)
	}

	execs := make([]types.Execution, 0, len(trades))
	for _, t := range trades {
		side, err := kiteSide(t.TransactionType)
		if err != nil {
			logger.Warn(ctx, "Dropping trade with unknown transaction type",
				"order_id", t.OrderID, "transaction_type", t.TransactionType)
			continue
		}
		if t.Quantity <= 0 || t.AveragePrice <= 0 {
			logger.Warn(ctx, "Dropping trade with non-positive quantity or price",
				"order_id", t.OrderID, "quantity", t.Quantity, "price", t.AveragePrice)
			continue
		}
		execs = append(execs, types.Execution{
			Symbol:    strings.ToUpper(strings.TrimSpace(t.TradingSymbol)),
			Timestamp: t.FillTimestamp.Time.In(IST),
			Side:      side,
			Quantity:  t.Quantity,
			Price:     t.AveragePrice,
			OrderID:   t.OrderID,
		})
	}

	sort.SliceStable(execs, func(i, j int) bool {
		return execs[i].Timestamp.Before(execs[j].Timestamp)
	})

	timer.End("executions", len(execs))
	return execs, nil
}

func kiteSide(transactionType string) (types.Side, error) {
	switch strings.ToUpper(strings.TrimSpace(transactionType)) {
	case "BUY":
		return types.Buy, nil
	case "SELL":
		return types.Sell, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", transactionType)
	}
}

// Rows converts executions back to tradebook rows, so a Kite pull can be
// saved as a CSV and re-analyzed offline later.
func Rows(execs []types.Execution) []Row {
	rows := make([]Row, 0, len(execs))
	for _, e := range execs {
		rows = append(rows, Row{
			Symbol:             e.Symbol,
			TradeDate:          e.Timestamp.In(IST).Format("2006-01-02"),
			Exchange:           "NSE",
			Segment:            "EQ",
			TradeType:          string(e.Side),
			Quantity:           fmt.Sprintf("%g", e.Quantity),
			Price:              fmt.Sprintf("%g", e.Price),
			OrderID:            e.OrderID,
			OrderExecutionTime: e.Timestamp.In(IST).Format("2006-01-02T15:04:05"),
		})
	}
	return rows
}
