package insights

import (
	"context"
	"strings"
	"testing"
	"time"

	"trade-coach/internal/types"
)

func TestCardsEmptyInput(t *testing.T) {
	if got := NewCoach().Cards(context.Background(), nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestCardsFixedOrder(t *testing.T) {
	trades := []types.ClosedTrade{
		trade("RELIANCE", day, 2, 500, 1.5),
		trade("RELIANCE", day.Add(3*time.Hour), 1, -200, -0.8),
		trade("TCS", day.AddDate(0, 0, 1), 30, 900, 3.0),
	}
	cards := NewCoach().Cards(context.Background(), trades)
	if len(cards) != 8 {
		t.Fatalf("got %d cards, want 8", len(cards))
	}

	wantTypes := []string{
		"performance_summary",
		"winning_patterns",
		"top_mistakes",
		"behavioral_bias",
		"whatif_analysis",
		"strategy_leaderboard",
		"time_performance",
		"stock_focus",
	}
	for i, want := range wantTypes {
		if cards[i].Type != want {
			t.Errorf("card %d type = %s, want %s", i, cards[i].Type, want)
		}
	}
}

func TestPerformanceSummaryPrefersSwing(t *testing.T) {
	trades := []types.ClosedTrade{
		trade("TCS", day, 2, 100, 0.5),
		trade("INFY", day.AddDate(0, 0, 1), 48, 5000, 5.0),
	}
	card := NewCoach().performanceSummary(trades)
	if card.Insight != "You earned most from swing trades." {
		t.Fatalf("Insight = %q", card.Insight)
	}
	if card.Data["best_stock"] != "INFY" || card.Data["worst_stock"] != "TCS" {
		t.Fatalf("best/worst = %v/%v", card.Data["best_stock"], card.Data["worst_stock"])
	}
}

func TestRevengeTradingDetected(t *testing.T) {
	loss := trade("SBIN", day, 1, -300, -1.5)
	// Re-entry 30 minutes after the losing exit, also a loss.
	revenge := trade("SBIN", loss.ExitDatetime.Add(30*time.Minute), 1, -200, -1.0)
	trades := []types.ClosedTrade{loss, revenge}

	card := NewCoach().behavioralBias(trades)
	biases, ok := card.Data["biases"].([]string)
	if !ok || len(biases) == 0 {
		t.Fatalf("expected at least one bias, got %v", card.Data["biases"])
	}
	found := false
	for _, b := range biases {
		if strings.HasPrefix(b, "Revenge Trading") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected revenge-trading bias, got %v", biases)
	}
}

func TestStockFocusNeedsRepeatTrades(t *testing.T) {
	single := []types.ClosedTrade{
		trade("A", day, 1, 100, 1),
		trade("B", day, 1, 200, 1),
	}
	card := NewCoach().stockFocus(single)
	if card.Data != nil {
		t.Fatalf("expected fallback card without data, got %v", card.Data)
	}

	repeat := append(single, trade("A", day.Add(2*time.Hour), 1, 50, 0.5))
	card = NewCoach().stockFocus(repeat)
	champ, ok := card.Data["champion_stock"].(map[string]any)
	if !ok || champ["symbol"] != "A" {
		t.Fatalf("champion = %v", card.Data["champion_stock"])
	}
	if _, ok := card.Data["avoid_stock"]; ok {
		t.Fatal("no losing symbol, avoid_stock must be absent")
	}
}

func TestFormatHold(t *testing.T) {
	if got := formatHold(27.5); got != "1d 3h 30m" {
		t.Fatalf("formatHold(27.5) = %s", got)
	}
	if got := formatHold(0.25); got != "0d 0h 15m" {
		t.Fatalf("formatHold(0.25) = %s", got)
	}
}
