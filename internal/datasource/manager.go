package datasource

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sunnmoony/aistock-assistant-sun/internal/config"
	apperrors "github.com/sunnmoony/aistock-assistant-sun/internal/errors"
	"github.com/sunnmoony/aistock-assistant-sun/internal/logging"
	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
	"github.com/sunnmoony/aistock-assistant-sun/internal/resilience"
	"github.com/sunnmoony/aistock-assistant-sun/pkg/utils"
)

// Manager tries providers in priority order with bounded retries and returns
// the first success, tagging the Quote with the serving provider. The
// ordering is fixed for the lifetime of the Manager so results within one run
// are reproducible.
type Manager struct {
	sources []*managedSource
	cache   *quoteCache
	logger  zerolog.Logger
}

type managedSource struct {
	provider Provider
	cfg      config.ProviderConfig
	breaker  *resilience.CircuitBreaker
	stats    providerStats
}

type providerStats struct {
	mu           sync.Mutex
	successes    int64
	failures     int64
	totalLatency time.Duration
	lastError    string
	lastSuccess  time.Time
}

func (s *providerStats) recordSuccess(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes++
	s.totalLatency += latency
	s.lastSuccess = time.Now()
}

func (s *providerStats) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	if err != nil {
		s.lastError = err.Error()
	}
}

// ProviderStatus is a point-in-time report for one managed provider.
type ProviderStatus struct {
	Name         string        `json:"name"`
	Priority     int           `json:"priority"`
	CircuitState string        `json:"circuit_state"`
	Successes    int64         `json:"successes"`
	Failures     int64         `json:"failures"`
	AvgLatency   time.Duration `json:"avg_latency"`
	LastError    string        `json:"last_error,omitempty"`
	LastSuccess  time.Time     `json:"last_success,omitempty"`
	Healthy      bool          `json:"healthy"`
}

// NewManager creates a manager over the given sources. Sources must already
// be in effective priority order (BuildSources guarantees this for
// config-driven construction).
func NewManager(sources []Source, cacheTTL time.Duration, logger zerolog.Logger) (*Manager, error) {
	if len(sources) == 0 {
		return nil, apperrors.ErrNoProvidersEnabled
	}

	managed := make([]*managedSource, 0, len(sources))
	for _, src := range sources {
		managed = append(managed, &managedSource{
			provider: src.Provider,
			cfg:      src.Config,
			breaker:  resilience.NewCircuitBreaker(src.Provider.Name(), resilience.DefaultCircuitBreakerConfig()),
		})
	}

	return &Manager{
		sources: managed,
		cache:   newQuoteCache(cacheTTL, 256),
		logger:  logger,
	}, nil
}

// NewManagerFromConfig builds providers from configuration and wraps them in
// a manager.
func NewManagerFromConfig(cfg *config.Config, logger zerolog.Logger) (*Manager, error) {
	sources, err := BuildSources(cfg.DataSources)
	if err != nil {
		return nil, err
	}
	return NewManager(sources, cfg.Run.CacheTTL, logger)
}

// FetchQuote returns a quote for symbol, serving from the TTL cache when
// fresh enough.
func (m *Manager) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if quote, ok := m.cache.get(symbol); ok {
		return quote, nil
	}
	quote, err := m.fetchQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	m.cache.set(symbol, quote)
	return quote, nil
}

// ForceRefresh fetches a quote bypassing the cache and stores the result.
func (m *Manager) ForceRefresh(ctx context.Context, symbol string) (*models.Quote, error) {
	quote, err := m.fetchQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	m.cache.set(symbol, quote)
	return quote, nil
}

func (m *Manager) fetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	quote, err := failover(ctx, m, symbol, func(ctx context.Context, p Provider) (*models.Quote, error) {
		return p.FetchQuote(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	logging.LogQuote(m.logger, symbol, quote.Source, quote.Close, quote.FetchLatency)
	return quote, nil
}

// FetchHistory returns daily candles for symbol using the same failover
// policy as quotes.
func (m *Manager) FetchHistory(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	return failover(ctx, m, symbol, func(ctx context.Context, p Provider) ([]models.Candle, error) {
		return p.FetchHistory(ctx, symbol, days)
	})
}

// failover walks the provider order, retrying each provider per its config,
// and returns the first success. Network errors, malformed responses, and
// timeouts are all treated as the same provider-level failure.
func failover[T any](ctx context.Context, m *Manager, symbol string, fn func(context.Context, Provider) (T, error)) (T, error) {
	var zero T
	var failures []string

	for _, src := range m.sources {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if err := src.breaker.Allow(); err != nil {
			failures = append(failures, src.provider.Name()+": "+err.Error())
			continue
		}

		result, latency, err := attemptWithRetries(ctx, src, fn)
		if err == nil {
			src.breaker.RecordSuccess()
			src.stats.recordSuccess(latency)
			if quote, ok := any(result).(*models.Quote); ok {
				quote.Source = src.provider.Name()
				quote.FetchLatency = latency
			}
			return result, nil
		}

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		src.breaker.RecordFailure()
		src.stats.recordFailure(err)
		m.logger.Warn().
			Str("provider", src.provider.Name()).
			Str("symbol", symbol).
			Err(err).
			Msg("Provider failed, trying next")
		failures = append(failures, err.Error())
	}

	return zero, apperrors.Wrapf(apperrors.ErrAllSourcesExhausted,
		"symbol %s (%s)", symbol, strings.Join(failures, "; "))
}

func attemptWithRetries[T any](ctx context.Context, src *managedSource, fn func(context.Context, Provider) (T, error)) (T, time.Duration, error) {
	retryCfg := utils.RetryConfig{
		MaxAttempts:   src.cfg.MaxRetries,
		InitialDelay:  src.cfg.RetryDelay,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}

	start := time.Now()
	result, err := utils.RetryWithResult(ctx, retryCfg, func() (T, error) {
		attemptCtx := ctx
		if src.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, src.cfg.Timeout)
			defer cancel()
		}
		return fn(attemptCtx, src.provider)
	})
	latency := time.Since(start)

	if err != nil {
		var zero T
		return zero, latency, apperrors.NewProviderError(src.provider.Name(), "", src.cfg.MaxRetries, err)
	}
	return result, latency, nil
}

// Status reports per-provider stats in priority order.
func (m *Manager) Status(ctx context.Context) []ProviderStatus {
	statuses := make([]ProviderStatus, 0, len(m.sources))
	for _, src := range m.sources {
		src.stats.mu.Lock()
		st := ProviderStatus{
			Name:         src.provider.Name(),
			Priority:     src.cfg.Priority,
			CircuitState: string(src.breaker.State()),
			Successes:    src.stats.successes,
			Failures:     src.stats.failures,
			LastError:    src.stats.lastError,
			LastSuccess:  src.stats.lastSuccess,
		}
		if src.stats.successes > 0 {
			st.AvgLatency = src.stats.totalLatency / time.Duration(src.stats.successes)
		}
		src.stats.mu.Unlock()

		st.Healthy = src.provider.HealthCheck(ctx) == nil
		statuses = append(statuses, st)
	}
	return statuses
}

// ResetBreaker forces a provider's circuit breaker closed.
func (m *Manager) ResetBreaker(name string) bool {
	for _, src := range m.sources {
		if src.provider.Name() == name {
			src.breaker.Reset()
			return true
		}
	}
	return false
}

// Providers returns provider names in effective priority order.
func (m *Manager) Providers() []string {
	names := make([]string, 0, len(m.sources))
	for _, src := range m.sources {
		names = append(names, src.provider.Name())
	}
	return names
}
