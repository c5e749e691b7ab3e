package marketdata

import (
	"context"
	"math"
	"testing"
	"time"

	"trade-coach/internal/types"
)

func scenarioTrade() types.ClosedTrade {
	return types.ClosedTrade{
		Symbol:        "RELIANCE",
		EntryDatetime: time.Unix(1000, 0),
		ExitDatetime:  time.Unix(5000, 0),
		EntryPrice:    100,
		Quantity:      10,
	}
}

func TestBestHighPicksPeak(t *testing.T) {
	candles := []types.Candle{
		{Ts: 1000, High: 101},
		{Ts: 2000, High: 108},
		{Ts: 3000, High: 104},
	}
	pt := bestHigh(candles, scenarioTrade())
	if pt == nil {
		t.Fatal("expected an exit point")
	}
	if pt.Price != 108 {
		t.Fatalf("Price = %f, want 108", pt.Price)
	}
	if pt.PotentialPnL != 80 {
		t.Fatalf("PotentialPnL = %f, want 80", pt.PotentialPnL)
	}
	if pt.Time.Unix() != 2000 {
		t.Fatalf("Time = %v, want unix 2000", pt.Time)
	}
}

func TestBestHighEmptyWindow(t *testing.T) {
	if pt := bestHigh(nil, scenarioTrade()); pt != nil {
		t.Fatalf("expected nil for empty window, got %+v", pt)
	}
}

func TestTrailingStopTriggersAfterPeak(t *testing.T) {
	// Ratchets to 110, stop at 107.8, first close at or below triggers.
	candles := []types.Candle{
		{Ts: 1000, Close: 100},
		{Ts: 2000, Close: 110},
		{Ts: 3000, Close: 109},
		{Ts: 4000, Close: 107},
		{Ts: 5000, Close: 120},
	}
	pt := replayTrailingStop(candles, scenarioTrade())
	if pt == nil {
		t.Fatal("expected trailing stop to trigger")
	}
	if pt.Price != 107 {
		t.Fatalf("Price = %f, want 107", pt.Price)
	}
	if pt.Time.Unix() != 4000 {
		t.Fatalf("Time = %v, want unix 4000", pt.Time)
	}
	if pt.PotentialPnL != 70 {
		t.Fatalf("PotentialPnL = %f, want 70", pt.PotentialPnL)
	}
}

func TestTrailingStopNeverTriggersOnSteadyRise(t *testing.T) {
	candles := []types.Candle{
		{Ts: 1000, Close: 100},
		{Ts: 2000, Close: 101},
		{Ts: 3000, Close: 102},
	}
	if pt := replayTrailingStop(candles, scenarioTrade()); pt != nil {
		t.Fatalf("expected nil, got %+v", pt)
	}
}

func TestTrailingStopIgnoresPreEntryCandles(t *testing.T) {
	// Crash before entry must not count against the replay.
	candles := []types.Candle{
		{Ts: 100, Close: 50},
		{Ts: 1000, Close: 100},
		{Ts: 2000, Close: 101},
	}
	if pt := replayTrailingStop(candles, scenarioTrade()); pt != nil {
		t.Fatalf("expected nil, got %+v", pt)
	}
}

func TestTradePeriodVolatility(t *testing.T) {
	flat := []types.Candle{{Close: 100}, {Close: 100}, {Close: 100}}
	if v := tradePeriodVolatility(flat); v != 0 {
		t.Fatalf("flat closes volatility = %f, want 0", v)
	}
	// closes 1 and 3: mean 2, both deviations 1
	spread := []types.Candle{{Close: 1}, {Close: 3}}
	if v := tradePeriodVolatility(spread); v != 1 {
		t.Fatalf("volatility = %f, want 1", v)
	}
	if v := tradePeriodVolatility(nil); v != 0 {
		t.Fatalf("empty window volatility = %f, want 0", v)
	}
}

func TestExitScenariosCarryTradePeriodVolatility(t *testing.T) {
	src := &stubSource{name: "stub", candles: []types.Candle{
		{Ts: 1000, High: 101, Close: 99},
		{Ts: 2000, High: 108, Close: 101},
		{Ts: 5000, High: 104, Close: 100},
		{Ts: 6000, High: 112, Close: 111},
	}}
	a := NewAnalyzer(testFetcher(t, src))

	out, err := a.ExitScenarios(context.Background(), scenarioTrade())
	if err != nil {
		t.Fatalf("ExitScenarios: %v", err)
	}
	// entry-to-exit closes are 99, 101, 100: mean 100, deviations 1,1,0
	want := math.Sqrt(2.0 / 3.0)
	if math.Abs(out.PriceVolatility-want) > 1e-9 {
		t.Fatalf("PriceVolatility = %f, want %f", out.PriceVolatility, want)
	}
	if out.BestLateExit == nil || out.BestLateExit.Price != 112 {
		t.Fatalf("BestLateExit = %+v, want high 112", out.BestLateExit)
	}
}

func dailyCandles(n int, vol float64) []types.Candle {
	candles := make([]types.Candle, n)
	for i := range candles {
		candles[i] = types.Candle{
			Ts:    int64(86400 * (i + 1)),
			Close: float64(i + 1),
			Vol:   vol,
		}
	}
	return candles
}

func TestTechnicalSnapshotComputesIndicators(t *testing.T) {
	src := &stubSource{name: "stub", candles: dailyCandles(30, 100)}
	a := NewAnalyzer(testFetcher(t, src))

	snap, err := a.TechnicalSnapshot(context.Background(), "RELIANCE", time.Now())
	if err != nil {
		t.Fatalf("TechnicalSnapshot: %v", err)
	}
	// closes 1..30: SMA10 over 21..30, SMA20 over 11..30, VWAP is the
	// plain mean under constant volume
	if snap.SMA10 != 25.5 {
		t.Fatalf("SMA10 = %f, want 25.5", snap.SMA10)
	}
	if snap.SMA20 != 20.5 {
		t.Fatalf("SMA20 = %f, want 20.5", snap.SMA20)
	}
	if snap.VWAP != 15.5 {
		t.Fatalf("VWAP = %f, want 15.5", snap.VWAP)
	}
	// a monotonic rise has no losing period
	if snap.RSI != 100 {
		t.Fatalf("RSI = %f, want 100", snap.RSI)
	}
	if snap.VolumeRatio != 1 {
		t.Fatalf("VolumeRatio = %f, want 1", snap.VolumeRatio)
	}
}

func TestTechnicalSnapshotZeroesShortWindowIndicators(t *testing.T) {
	src := &stubSource{name: "stub", candles: dailyCandles(16, 100)}
	a := NewAnalyzer(testFetcher(t, src))

	snap, err := a.TechnicalSnapshot(context.Background(), "RELIANCE", time.Now())
	if err != nil {
		t.Fatalf("TechnicalSnapshot: %v", err)
	}
	// 16 candles cannot fill a 20-period SMA; NaN must become 0 so the
	// snapshot stays JSON-encodable
	if snap.SMA20 != 0 {
		t.Fatalf("SMA20 = %f, want 0 for a short window", snap.SMA20)
	}
	if snap.SMA10 != 11.5 {
		t.Fatalf("SMA10 = %f, want 11.5", snap.SMA10)
	}
}

func TestTechnicalSnapshotNeedsFifteenCandles(t *testing.T) {
	src := &stubSource{name: "stub", candles: dailyCandles(10, 100)}
	a := NewAnalyzer(testFetcher(t, src))

	if _, err := a.TechnicalSnapshot(context.Background(), "RELIANCE", time.Now()); err == nil {
		t.Fatal("expected an error with only 10 daily candles")
	}
	if src.calls != 1 {
		t.Fatalf("source called %d times, want 1", src.calls)
	}
}

func TestTechnicalSnapshotZeroVolume(t *testing.T) {
	src := &stubSource{name: "stub", candles: dailyCandles(30, 0)}
	a := NewAnalyzer(testFetcher(t, src))

	snap, err := a.TechnicalSnapshot(context.Background(), "RELIANCE", time.Now())
	if err != nil {
		t.Fatalf("TechnicalSnapshot: %v", err)
	}
	// zero total volume: VWAP is undefined (zeroed) and the ratio stays 0
	if snap.VWAP != 0 || snap.VolumeRatio != 0 {
		t.Fatalf("VWAP = %f VolumeRatio = %f, want both 0", snap.VWAP, snap.VolumeRatio)
	}
}
