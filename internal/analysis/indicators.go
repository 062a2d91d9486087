// Package analysis computes the technical indicators fed into the analysis
// agents and their rule-based fallbacks.
package analysis

import (
	"errors"

	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

var (
	// ErrInvalidPeriod is returned for non-positive indicator periods.
	ErrInvalidPeriod = errors.New("invalid indicator period")
	// ErrInsufficientData is returned when there are fewer candles than the
	// indicator period requires.
	ErrInsufficientData = errors.New("insufficient data for indicator")
)

// SMA calculates the simple moving average of closing prices over period.
// The result is aligned with candles; entries before period-1 are zero.
func SMA(candles []models.Candle, period int) ([]float64, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < period {
		return nil, ErrInsufficientData
	}

	closes := closePrices(candles)
	result := make([]float64, len(candles))
	for i := period - 1; i < len(candles); i++ {
		result[i] = mean(closes[i-period+1 : i+1])
	}
	return result, nil
}

// EMA calculates the exponential moving average of closing prices.
func EMA(candles []models.Candle, period int) ([]float64, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < period {
		return nil, ErrInsufficientData
	}

	closes := closePrices(candles)
	result := make([]float64, len(candles))
	multiplier := 2.0 / float64(period+1)

	// First EMA is the SMA of the first period.
	result[period-1] = mean(closes[:period])
	for i := period; i < len(candles); i++ {
		result[i] = (closes[i]-result[i-1])*multiplier + result[i-1]
	}
	return result, nil
}

// RSI calculates the Wilder relative strength index.
func RSI(candles []models.Candle, period int) ([]float64, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < period+1 {
		return nil, ErrInsufficientData
	}

	closes := closePrices(candles)
	result := make([]float64, len(candles))

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gainSum += change
		} else {
			lossSum -= change
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	result[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		result[i] = rsiValue(avgGain, avgLoss)
	}
	return result, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDResult holds the three MACD series.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD calculates MACD(12,26,9) over closing prices.
func MACD(candles []models.Candle) (*MACDResult, error) {
	const fast, slow, signalPeriod = 12, 26, 9
	if len(candles) < slow+signalPeriod {
		return nil, ErrInsufficientData
	}

	fastEMA, err := EMA(candles, fast)
	if err != nil {
		return nil, err
	}
	slowEMA, err := EMA(candles, slow)
	if err != nil {
		return nil, err
	}

	macd := make([]float64, len(candles))
	for i := slow - 1; i < len(candles); i++ {
		macd[i] = fastEMA[i] - slowEMA[i]
	}

	// Signal line is an EMA over the MACD line.
	signal := make([]float64, len(candles))
	multiplier := 2.0 / float64(signalPeriod+1)
	start := slow - 1 + signalPeriod
	signal[start-1] = mean(macd[slow-1 : start])
	for i := start; i < len(candles); i++ {
		signal[i] = (macd[i]-signal[i-1])*multiplier + signal[i-1]
	}

	histogram := make([]float64, len(candles))
	for i := start - 1; i < len(candles); i++ {
		histogram[i] = macd[i] - signal[i]
	}

	return &MACDResult{MACD: macd, Signal: signal, Histogram: histogram}, nil
}

func closePrices(candles []models.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
