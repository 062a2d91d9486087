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

// PytdxProvider fetches quotes from an HTTP gateway in front of the pytdx
// TDX protocol bridge. The gateway speaks the TDX field names, which differ
// from the AkShare gateway.
type PytdxProvider struct {
	baseURL string
	client  *http.Client
}

// NewPytdxProvider creates a new pytdx provider.
func NewPytdxProvider(cfg config.ProviderConfig) *PytdxProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &PytdxProvider{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider identifier.
func (p *PytdxProvider) Name() string {
	return "pytdx"
}

type pytdxResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type pytdxQuote struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Price     float64 `json:"price"`
	LastClose float64 `json:"last_close"`
	Vol       int64   `json:"vol"`
}

// FetchQuote fetches the realtime quote for a symbol.
func (p *PytdxProvider) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	data, err := p.call(ctx, fmt.Sprintf("%s/quote?code=%s", p.baseURL, url.QueryEscape(symbol)))
	if err != nil {
		return nil, err
	}

	var raw pytdxQuote
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("pytdx quote malformed: %w", err)
	}
	if raw.Price <= 0 {
		return nil, fmt.Errorf("pytdx returned empty quote for %s", symbol)
	}

	return &models.Quote{
		Symbol:    symbol,
		Name:      raw.Name,
		Timestamp: time.Now(),
		Open:      raw.Open,
		High:      raw.High,
		Low:       raw.Low,
		Close:     raw.Price,
		PrevClose: raw.LastClose,
		Volume:    raw.Vol,
	}, nil
}

type pytdxBar struct {
	Datetime string  `json:"datetime"` // 2006-01-02 15:04
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Vol      int64   `json:"vol"`
}

// FetchHistory fetches daily candles for the past days trading days.
func (p *PytdxProvider) FetchHistory(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	data, err := p.call(ctx, fmt.Sprintf("%s/bars?code=%s&count=%d", p.baseURL, url.QueryEscape(symbol), days))
	if err != nil {
		return nil, err
	}

	var raw []pytdxBar
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("pytdx bars malformed: %w", err)
	}

	candles := make([]models.Candle, 0, len(raw))
	for _, b := range raw {
		date, err := time.Parse("2006-01-02 15:04", b.Datetime)
		if err != nil {
			// Some gateways emit bare dates for daily bars.
			date, err = time.Parse("2006-01-02", b.Datetime)
			if err != nil {
				return nil, fmt.Errorf("pytdx returned bad datetime %q: %w", b.Datetime, err)
			}
		}
		candles = append(candles, models.Candle{
			Date:   date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Vol,
		})
	}
	return candles, nil
}

// HealthCheck probes the gateway.
func (p *PytdxProvider) HealthCheck(ctx context.Context) error {
	_, err := p.call(ctx, p.baseURL+"/ping")
	return err
}

// call performs a GET and unwraps the gateway's {code, msg, data} envelope.
func (p *PytdxProvider) call(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pytdx gateway returned status %d", resp.StatusCode)
	}

	var envelope pytdxResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("pytdx response malformed: %w", err)
	}
	if envelope.Code != 0 {
		return nil, fmt.Errorf("pytdx gateway error %d: %s", envelope.Code, envelope.Msg)
	}
	return envelope.Data, nil
}
