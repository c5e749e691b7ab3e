package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"

	"trade-coach/internal/types"
)

// Format specifies the output format for coach reports
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Report is everything one coach run produced.
type Report struct {
	GeneratedAt    time.Time             `json:"generated_at"`
	RunID          string                `json:"run_id"`
	Source         string                `json:"source"`
	Summary        types.Summary         `json:"summary"`
	Trades         []types.ClosedTrade   `json:"trades"`
	OpenLots       []types.OpenLot       `json:"open_lots,omitempty"`
	UnmatchedSells []types.UnmatchedSell `json:"unmatched_sells,omitempty"`
	Insights       []types.Insight       `json:"insights,omitempty"`
	Cards          []types.CoachCard     `json:"coach_cards,omitempty"`
	SourceStats    map[string]int        `json:"source_stats,omitempty"`
}

// Reporter handles generation and storage of coach reports
type Reporter struct {
	outputDir string
}

// NewReporter creates a new reporter
func NewReporter(outputDir string) *Reporter {
	return &Reporter{
		outputDir: outputDir,
	}
}

// Generate renders the report in the requested format
func (r *Reporter) Generate(report *Report, format Format) (string, error) {
	switch format {
	case FormatJSON:
		return r.generateJSON(report)
	case FormatText:
		return r.generateText(report)
	case FormatCSV:
		return r.generateCSV(report)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// Save renders the report and writes it under the output directory with a
// timestamped filename. Returns the file path.
func (r *Reporter) Save(report *Report, format Format) (string, error) {
	content, err := r.Generate(report, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", err
	}

	timestamp := report.GeneratedAt.Format("2006-01-02_15-04-05")
	ext := string(format)
	if format == FormatText {
		ext = "txt"
	}
	filename := fmt.Sprintf("coach_report_%s.%s", timestamp, ext)
	path := filepath.Join(r.outputDir, filename)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (r *Reporter) generateJSON(report *Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r *Reporter) generateText(report *Report) (string, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 80) + "\n")
	sb.WriteString("TRADE COACH REPORT\n")
	sb.WriteString(strings.Repeat("=", 80) + "\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))
	if report.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run ID: %s\n", report.RunID))
	}
	if report.Source != "" {
		sb.WriteString(fmt.Sprintf("Tradebook: %s\n", report.Source))
	}
	sb.WriteString("\n")

	r.addSummarySection(&sb, report.Summary)
	r.addTradesSection(&sb, report.Trades)
	r.addOpenLotsSection(&sb, report.OpenLots)
	r.addUnmatchedSection(&sb, report.UnmatchedSells)
	r.addInsightsSection(&sb, report.Insights)
	r.addCardsSection(&sb, report.Cards)
	r.addSourcesSection(&sb, report.SourceStats)

	sb.WriteString("\n" + strings.Repeat("=", 80) + "\n")
	sb.WriteString("END OF REPORT\n")
	sb.WriteString(strings.Repeat("=", 80) + "\n")

	return sb.String(), nil
}

func (r *Reporter) addSummarySection(sb *strings.Builder, s types.Summary) {
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 80) + "\n")

	table := tablewriter.NewWriter(sb)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Append([]string{"Total Trades", fmt.Sprintf("%d", s.TotalTrades)})
	table.Append([]string{"Winning / Losing", fmt.Sprintf("%d / %d", s.WinningTrades, s.LosingTrades)})
	table.Append([]string{"Win Rate", fmt.Sprintf("%.1f%%", s.WinRate)})
	table.Append([]string{"Total P&L", fmt.Sprintf("%.2f", s.TotalPnL)})
	table.Append([]string{"Average P&L", fmt.Sprintf("%.2f", s.AvgPnL)})
	table.Append([]string{"Max Profit", fmt.Sprintf("%.2f", s.MaxProfit)})
	table.Append([]string{"Max Loss", fmt.Sprintf("%.2f", s.MaxLoss)})
	table.Append([]string{"Avg Hold Hours", fmt.Sprintf("%.1f", s.AvgHoldHours)})
	table.Append([]string{"Total Volume", fmt.Sprintf("%.0f", s.TotalVolume)})
	table.Render()
	sb.WriteString("\n")
}

func (r *Reporter) addTradesSection(sb *strings.Builder, trades []types.ClosedTrade) {
	sb.WriteString(fmt.Sprintf("CLOSED TRADES: %d\n", len(trades)))
	sb.WriteString(strings.Repeat("-", 80) + "\n")
	if len(trades) == 0 {
		sb.WriteString("No closed trades in this tradebook.\n\n")
		return
	}

	table := tablewriter.NewWriter(sb)
	table.SetHeader([]string{"Symbol", "Entry", "Exit", "Qty", "Entry Px", "Exit Px", "P&L", "P&L %", "Hold (h)", "Result"})
	for _, t := range trades {
		table.Append([]string{
			t.Symbol,
			t.EntryDatetime.Format("2006-01-02 15:04"),
			t.ExitDatetime.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.0f", t.Quantity),
			fmt.Sprintf("%.2f", t.EntryPrice),
			fmt.Sprintf("%.2f", t.ExitPrice),
			fmt.Sprintf("%.2f", t.GrossPnL),
			fmt.Sprintf("%.2f", t.PnLPercentage),
			fmt.Sprintf("%.1f", t.HoldHours),
			string(t.Result),
		})
	}
	table.Render()
	sb.WriteString("\n")
}

func (r *Reporter) addOpenLotsSection(sb *strings.Builder, lots []types.OpenLot) {
	if len(lots) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("OPEN POSITIONS: %d\n", len(lots)))
	sb.WriteString(strings.Repeat("-", 80) + "\n")

	table := tablewriter.NewWriter(sb)
	table.SetHeader([]string{"Symbol", "Qty", "Price", "Bought"})
	for _, l := range lots {
		table.Append([]string{
			l.Symbol,
			fmt.Sprintf("%.0f", l.Quantity),
			fmt.Sprintf("%.2f", l.Price),
			l.Timestamp.Format("2006-01-02 15:04"),
		})
	}
	table.Render()
	sb.WriteString("\n")
}

func (r *Reporter) addUnmatchedSection(sb *strings.Builder, sells []types.UnmatchedSell) {
	if len(sells) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("UNMATCHED SELLS: %d (tradebook may start mid-position)\n", len(sells)))
	sb.WriteString(strings.Repeat("-", 80) + "\n")
	for _, s := range sells {
		sb.WriteString(fmt.Sprintf("  %s  %s  qty %.0f @ %.2f\n",
			s.Symbol, s.Timestamp.Format("2006-01-02 15:04"), s.Quantity, s.Price))
	}
	sb.WriteString("\n")
}

func (r *Reporter) addInsightsSection(sb *strings.Builder, insights []types.Insight) {
	sb.WriteString(fmt.Sprintf("INSIGHTS: %d\n", len(insights)))
	sb.WriteString(strings.Repeat("-", 80) + "\n")
	if len(insights) == 0 {
		sb.WriteString("No insight rules fired for this tradebook.\n\n")
		return
	}
	for i, in := range insights {
		sb.WriteString(fmt.Sprintf("\n%d. [%s] %s\n", i+1, in.Type, in.Title))
		sb.WriteString(fmt.Sprintf("   %s\n", in.Description))
		sb.WriteString(fmt.Sprintf("   Action: %s\n", in.Action))
	}
	sb.WriteString("\n")
}

func (r *Reporter) addCardsSection(sb *strings.Builder, cards []types.CoachCard) {
	if len(cards) == 0 {
		return
	}
	sb.WriteString("COACH CARDS\n")
	sb.WriteString(strings.Repeat("-", 80) + "\n")
	for _, c := range cards {
		sb.WriteString(fmt.Sprintf("\n%s\n", c.Title))
		sb.WriteString(fmt.Sprintf("   %s\n", c.Insight))
		sb.WriteString(fmt.Sprintf("   Action: %s\n", c.Action))
	}
	sb.WriteString("\n")
}

func (r *Reporter) addSourcesSection(sb *strings.Builder, stats map[string]int) {
	if len(stats) == 0 {
		return
	}
	sb.WriteString("MARKET DATA SOURCES\n")
	sb.WriteString(strings.Repeat("-", 80) + "\n")
	for _, name := range sortedKeys(stats) {
		sb.WriteString(fmt.Sprintf("  %-20s %d requests served\n", name, stats[name]))
	}
	sb.WriteString("\n")
}

// csvTradeRow is the flat shape of one closed trade for spreadsheet use.
type csvTradeRow struct {
	Symbol        string  `csv:"symbol"`
	EntryDatetime string  `csv:"entry_datetime"`
	ExitDatetime  string  `csv:"exit_datetime"`
	Quantity      float64 `csv:"quantity"`
	EntryPrice    float64 `csv:"entry_price"`
	ExitPrice     float64 `csv:"exit_price"`
	GrossPnL      float64 `csv:"gross_pnl"`
	PnLPercentage float64 `csv:"pnl_percentage"`
	HoldHours     float64 `csv:"hold_hours"`
	Result        string  `csv:"trade_result"`
	EntryOrderID  string  `csv:"entry_order_id"`
	ExitOrderID   string  `csv:"exit_order_id"`
}

func (r *Reporter) generateCSV(report *Report) (string, error) {
	rows := make([]csvTradeRow, 0, len(report.Trades))
	for _, t := range report.Trades {
		rows = append(rows, csvTradeRow{
			Symbol:        t.Symbol,
			EntryDatetime: t.EntryDatetime.Format("2006-01-02 15:04:05"),
			ExitDatetime:  t.ExitDatetime.Format("2006-01-02 15:04:05"),
			Quantity:      t.Quantity,
			EntryPrice:    t.EntryPrice,
			ExitPrice:     t.ExitPrice,
			GrossPnL:      t.GrossPnL,
			PnLPercentage: t.PnLPercentage,
			HoldHours:     t.HoldHours,
			Result:        string(t.Result),
			EntryOrderID:  t.EntryOrderID,
			ExitOrderID:   t.ExitOrderID,
		})
	}
	return gocsv.MarshalString(&rows)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
