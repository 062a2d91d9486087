package analysis

import "github.com/sunnmoony/aistock-assistant-sun/internal/models"

// Snapshot is the latest indicator readout for one symbol, computed once per
// analysis run and shared by all agents.
type Snapshot struct {
	SMA5      float64
	SMA20     float64
	RSI14     float64
	MACDHist  float64
	Change5d  float64
	Change20d float64
}

// ComputeSnapshot derives a Snapshot from daily candles. Indicators that lack
// enough history are left at zero; agents treat zero as "unavailable".
func ComputeSnapshot(candles []models.Candle) *Snapshot {
	snap := &Snapshot{}
	if len(candles) == 0 {
		return snap
	}
	last := len(candles) - 1

	if sma, err := SMA(candles, 5); err == nil {
		snap.SMA5 = sma[last]
	}
	if sma, err := SMA(candles, 20); err == nil {
		snap.SMA20 = sma[last]
	}
	if rsi, err := RSI(candles, 14); err == nil {
		snap.RSI14 = rsi[last]
	}
	if macd, err := MACD(candles); err == nil {
		snap.MACDHist = macd.Histogram[last]
	}

	snap.Change5d = changeOver(candles, 5)
	snap.Change20d = changeOver(candles, 20)
	return snap
}

// Trend classifies the snapshot into a directional stance using the moving
// average cross and momentum.
func (s *Snapshot) Trend() models.Stance {
	if s.SMA5 == 0 || s.SMA20 == 0 {
		return models.StanceNeutral
	}
	switch {
	case s.SMA5 > s.SMA20 && s.MACDHist >= 0:
		return models.StanceBullish
	case s.SMA5 < s.SMA20 && s.MACDHist <= 0:
		return models.StanceBearish
	default:
		return models.StanceNeutral
	}
}

func changeOver(candles []models.Candle, days int) float64 {
	if len(candles) <= days {
		return 0
	}
	last := candles[len(candles)-1].Close
	prev := candles[len(candles)-1-days].Close
	if prev == 0 {
		return 0
	}
	return (last - prev) / prev * 100
}
