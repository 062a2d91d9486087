package analysis

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

func candlesFromCloses(closes ...float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = models.Candle{
			Date:  base.AddDate(0, 0, i),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		}
	}
	return candles
}

func TestSMAKnownValues(t *testing.T) {
	candles := candlesFromCloses(1, 2, 3, 4, 5)
	sma, err := SMA(candles, 3)
	require.NoError(t, err)
	require.Len(t, sma, 5)
	assert.Zero(t, sma[0])
	assert.Zero(t, sma[1])
	assert.InDelta(t, 2.0, sma[2], 1e-9)
	assert.InDelta(t, 3.0, sma[3], 1e-9)
	assert.InDelta(t, 4.0, sma[4], 1e-9)
}

func TestSMAErrors(t *testing.T) {
	candles := candlesFromCloses(1, 2)
	_, err := SMA(candles, 0)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	_, err = SMA(candles, 5)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEMAConvergesToConstantSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 50
	}
	ema, err := EMA(candlesFromCloses(closes...), 10)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, ema[len(ema)-1], 1e-9)
}

func TestRSIAllGainsIsHundred(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rsi, err := RSI(candlesFromCloses(closes...), 14)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, rsi[len(rsi)-1], 1e-9)
}

func TestRSIAllLossesIsZero(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	rsi, err := RSI(candlesFromCloses(closes...), 14)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, rsi[len(rsi)-1], 1e-9)
}

func TestMACDInsufficientData(t *testing.T) {
	_, err := MACD(candlesFromCloses(1, 2, 3))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestMACDFlatSeriesIsZero(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 25
	}
	result, err := MACD(candlesFromCloses(closes...))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, result.MACD[len(closes)-1], 1e-9)
	assert.InDelta(t, 0.0, result.Histogram[len(closes)-1], 1e-9)
}

// Property: RSI always stays within [0, 100] for any positive price series.
func TestProperty_RSIBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	closesGen := gen.SliceOfN(40, gen.Float64Range(1, 1000))

	properties.Property("RSI stays in [0,100]", prop.ForAll(
		func(closes []float64) bool {
			rsi, err := RSI(candlesFromCloses(closes...), 14)
			if err != nil {
				return false
			}
			for _, v := range rsi[14:] {
				if v < 0 || v > 100 {
					return false
				}
			}
			return true
		},
		closesGen,
	))

	properties.TestingRun(t)
}

// Property: the SMA of any window lies between the window's min and max close.
func TestProperty_SMAWithinRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	closesGen := gen.SliceOfN(25, gen.Float64Range(1, 500))

	properties.Property("SMA bounded by window extremes", prop.ForAll(
		func(closes []float64) bool {
			period := 5
			sma, err := SMA(candlesFromCloses(closes...), period)
			if err != nil {
				return false
			}
			for i := period - 1; i < len(closes); i++ {
				lo, hi := closes[i], closes[i]
				for j := i - period + 1; j <= i; j++ {
					if closes[j] < lo {
						lo = closes[j]
					}
					if closes[j] > hi {
						hi = closes[j]
					}
				}
				if sma[i] < lo-1e-9 || sma[i] > hi+1e-9 {
					return false
				}
			}
			return true
		},
		closesGen,
	))

	properties.TestingRun(t)
}

func TestComputeSnapshotTrend(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}
	snapshot := ComputeSnapshot(candlesFromCloses(closes...))
	require.NotNil(t, snapshot)
	assert.Greater(t, snapshot.SMA5, snapshot.SMA20, "rising series has fast MA above slow MA")
	assert.Equal(t, models.StanceBullish, snapshot.Trend())
}

func TestComputeSnapshotShortHistory(t *testing.T) {
	snapshot := ComputeSnapshot(candlesFromCloses(1, 2, 3))
	require.NotNil(t, snapshot)
	assert.Zero(t, snapshot.SMA20)
}

func TestComputeSnapshotNilHistory(t *testing.T) {
	snapshot := ComputeSnapshot(nil)
	require.NotNil(t, snapshot)
	assert.Equal(t, models.StanceNeutral, snapshot.Trend())
}
