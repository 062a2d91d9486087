package datasource

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

// MockProvider generates synthetic quotes so the pipeline can always make
// progress in degraded or offline environments. Prices are derived from the
// symbol so repeated runs stay in a plausible range.
type MockProvider struct {
	mu  sync.Mutex // rand.Rand is not safe for concurrent workers
	rng *rand.Rand
}

// NewMockProvider creates a new synthetic provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Name returns the provider identifier.
func (p *MockProvider) Name() string {
	return MockProviderName
}

// basePrice maps a symbol to a stable price anchor between 5 and 105.
func basePrice(symbol string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return 5.0 + float64(h.Sum32()%10000)/100.0
}

// FetchQuote generates a synthetic realtime quote within ±5% of the anchor.
func (p *MockProvider) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	base := basePrice(symbol)
	change := (p.rng.Float64() - 0.5) * 0.10 // ±5%
	closePrice := base * (1 + change)
	open := base * (1 + (p.rng.Float64()-0.5)*0.04)
	high := maxFloat(open, closePrice) * (1 + p.rng.Float64()*0.02)
	low := minFloat(open, closePrice) * (1 - p.rng.Float64()*0.02)

	return &models.Quote{
		Symbol:    symbol,
		Name:      "模拟-" + symbol,
		Timestamp: time.Now(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		PrevClose: base,
		Volume:    int64(p.rng.Intn(9_000_000) + 1_000_000),
	}, nil
}

// FetchHistory generates a synthetic random walk of daily candles ending
// today.
func (p *MockProvider) FetchHistory(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	candles := make([]models.Candle, 0, days)
	price := basePrice(symbol)
	start := time.Now().AddDate(0, 0, -days)

	for i := 0; i < days; i++ {
		open := price
		price *= 1 + (p.rng.Float64()-0.5)*0.06
		high := maxFloat(open, price) * (1 + p.rng.Float64()*0.02)
		low := minFloat(open, price) * (1 - p.rng.Float64()*0.02)
		candles = append(candles, models.Candle{
			Date:   start.AddDate(0, 0, i),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  price,
			Volume: int64(p.rng.Intn(9_000_000) + 1_000_000),
		})
	}
	return candles, nil
}

// HealthCheck always succeeds.
func (p *MockProvider) HealthCheck(ctx context.Context) error {
	return nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
