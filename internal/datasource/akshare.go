package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sunnmoony/aistock-assistant-sun/internal/config"
	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

// AkShareProvider fetches quotes from an aktools-style HTTP gateway in front
// of the AkShare data library.
type AkShareProvider struct {
	baseURL string
	client  *http.Client
}

// NewAkShareProvider creates a new AkShare provider.
func NewAkShareProvider(cfg config.ProviderConfig) *AkShareProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &AkShareProvider{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider identifier.
func (p *AkShareProvider) Name() string {
	return "akshare"
}

type akshareQuote struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Latest    float64 `json:"latest"`
	PrevClose float64 `json:"prev_close"`
	Volume    int64   `json:"volume"`
	Time      int64   `json:"time"` // unix seconds
}

// FetchQuote fetches the realtime quote for a symbol.
func (p *AkShareProvider) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var raw akshareQuote
	endpoint := fmt.Sprintf("%s/api/quote?symbol=%s", p.baseURL, url.QueryEscape(symbol))
	if err := p.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}
	if raw.Latest <= 0 {
		return nil, fmt.Errorf("akshare returned empty quote for %s", symbol)
	}

	ts := time.Now()
	if raw.Time > 0 {
		ts = time.Unix(raw.Time, 0)
	}
	return &models.Quote{
		Symbol:    symbol,
		Name:      raw.Name,
		Timestamp: ts,
		Open:      raw.Open,
		High:      raw.High,
		Low:       raw.Low,
		Close:     raw.Latest,
		PrevClose: raw.PrevClose,
		Volume:    raw.Volume,
	}, nil
}

type akshareCandle struct {
	Date   string  `json:"date"` // 2006-01-02
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// FetchHistory fetches daily candles for the past days trading days.
func (p *AkShareProvider) FetchHistory(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	var raw []akshareCandle
	endpoint := fmt.Sprintf("%s/api/history?symbol=%s&days=%d", p.baseURL, url.QueryEscape(symbol), days)
	if err := p.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(raw))
	for _, c := range raw {
		date, err := time.Parse("2006-01-02", c.Date)
		if err != nil {
			return nil, fmt.Errorf("akshare returned bad date %q: %w", c.Date, err)
		}
		candles = append(candles, models.Candle{
			Date:   date,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}
	return candles, nil
}

// HealthCheck probes the gateway.
func (p *AkShareProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("akshare gateway unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (p *AkShareProvider) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("akshare gateway returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("akshare response malformed: %w", err)
	}
	return nil
}
