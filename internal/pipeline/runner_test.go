package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunnmoony/aistock-assistant-sun/internal/agents"
	"github.com/sunnmoony/aistock-assistant-sun/internal/backtest"
	"github.com/sunnmoony/aistock-assistant-sun/internal/config"
	"github.com/sunnmoony/aistock-assistant-sun/internal/datasource"
	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
	"github.com/sunnmoony/aistock-assistant-sun/internal/notify"
	"github.com/sunnmoony/aistock-assistant-sun/internal/store"
)

// flakyProvider fails or serves a fixed quote.
type flakyProvider struct {
	name string
	fail bool
}

func (p *flakyProvider) Name() string { return p.name }

func (p *flakyProvider) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if p.fail {
		return nil, errors.New(p.name + " gateway down")
	}
	return &models.Quote{
		Symbol:    symbol,
		Close:     1800,
		PrevClose: 1780,
		Timestamp: time.Now(),
	}, nil
}

func (p *flakyProvider) FetchHistory(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	if p.fail {
		return nil, errors.New(p.name + " gateway down")
	}
	candles := make([]models.Candle, days)
	base := time.Now().AddDate(0, 0, -days)
	for i := range candles {
		price := 1700 + float64(i)
		candles[i] = models.Candle{
			Date:  base.AddDate(0, 0, i),
			Open:  price,
			High:  price + 5,
			Low:   price - 5,
			Close: price,
		}
	}
	return candles, nil
}

func (p *flakyProvider) HealthCheck(ctx context.Context) error { return nil }

// fixedAgent always completes with the same stance and confidence.
type fixedAgent struct {
	role       models.AgentRole
	stance     models.Stance
	confidence float64
	err        error
}

func (a *fixedAgent) Role() models.AgentRole { return a.role }

func (a *fixedAgent) Analyze(ctx context.Context, input *agents.Input) (*models.AgentVerdict, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &models.AgentVerdict{
		Stance:     a.stance,
		Confidence: a.confidence,
		Status:     models.VerdictComplete,
	}, nil
}

// countingChannel records successful sends.
type countingChannel struct {
	name  string
	fail  bool
	sends atomic.Int64
}

func (c *countingChannel) Name() string  { return c.name }
func (c *countingChannel) MaxBytes() int { return 0 }

func (c *countingChannel) Send(ctx context.Context, payload string) error {
	if c.fail {
		return errors.New(c.name + " rejected")
	}
	c.sends.Add(1)
	return nil
}

func providerSource(p datasource.Provider, priority int) datasource.Source {
	return datasource.Source{
		Provider: p,
		Config: config.ProviderConfig{
			Name:       p.Name(),
			Enabled:    true,
			Priority:   priority,
			MaxRetries: 1,
			RetryDelay: time.Millisecond,
			Timeout:    time.Second,
		},
	}
}

func bullishAgents(confidence float64) []agents.Agent {
	return []agents.Agent{
		&fixedAgent{role: models.RoleMarket, stance: models.StanceBullish, confidence: confidence},
		&fixedAgent{role: models.RoleTechnical, stance: models.StanceBullish, confidence: confidence},
		&fixedAgent{role: models.RoleFundamental, stance: models.StanceBullish, confidence: confidence},
		&fixedAgent{role: models.RoleNews, stance: models.StanceBullish, confidence: confidence},
	}
}

func testRunConfig(mode string) *config.Config {
	return &config.Config{
		Backtest: config.BacktestConfig{
			Enabled:        true,
			EvalWindowDays: 10,
			MinAgeDays:     14,
			Limit:          50,
			ScoreWeights:   config.ScoreWeights{Direction: 0.5, Target: 0.3, Stop: 0.2},
		},
		Notification: config.NotificationConfig{
			Enabled:    true,
			Mode:       mode,
			MaxRetries: 2,
			RetryDelay: time.Millisecond,
		},
		Run: config.RunConfig{
			Concurrency:  4,
			AgentTimeout: time.Second,
		},
	}
}

type runnerFixture struct {
	runner  *Runner
	store   store.DataStore
	channel *countingChannel
}

func newRunnerFixture(t *testing.T, cfg *config.Config, sources []datasource.Source, agentSet []agents.Agent) *runnerFixture {
	t.Helper()
	logger := zerolog.Nop()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	data, err := datasource.NewManager(sources, 0, logger)
	require.NoError(t, err)

	coordinator := agents.NewCoordinator(agentSet, nil, cfg.Run.AgentTimeout, logger)

	ch := &countingChannel{name: "wechat"}
	dispatcher, err := notify.NewDispatcher([]notify.Channel{ch}, st, cfg.Notification, logger)
	require.NoError(t, err)

	evaluator := backtest.NewEvaluator(st, data, cfg.Backtest, logger)
	return &runnerFixture{
		runner:  NewRunner(cfg, st, data, coordinator, dispatcher, evaluator, logger),
		store:   st,
		channel: ch,
	}
}

func TestRunFailsOverAndProducesRecommendation(t *testing.T) {
	sources := []datasource.Source{
		providerSource(&flakyProvider{name: "akshare", fail: true}, 1),
		providerSource(&flakyProvider{name: "pytdx"}, 2),
	}
	f := newRunnerFixture(t, testRunConfig("single"), sources, bullishAgents(0.8))

	summary, err := f.runner.Run(context.Background(), []string{"600519"})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SymbolsRequested)
	assert.Equal(t, 1, summary.SymbolsSucceeded)
	assert.Zero(t, summary.SymbolsFailed)
	require.Len(t, summary.Recommendations, 1)

	rec := summary.Recommendations[0]
	assert.Equal(t, "600519", rec.Symbol)
	assert.Equal(t, models.StanceBullish, rec.Direction)
	assert.InDelta(t, 0.8, rec.Confidence, 1e-9)
	assert.Equal(t, "pytdx", rec.Source, "quote came from the second-priority provider")

	// The recommendation was persisted and dispatched.
	stored, err := f.store.GetRecommendation(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Symbol, stored.Symbol)
	assert.Equal(t, 1, summary.MessagesSent)
	assert.Equal(t, int64(1), f.channel.sends.Load())
}

func TestRunPartialFailureStillSummarized(t *testing.T) {
	// All providers fail, so every symbol fails but the run completes.
	sources := []datasource.Source{
		providerSource(&flakyProvider{name: "akshare", fail: true}, 1),
	}
	f := newRunnerFixture(t, testRunConfig("single"), sources, bullishAgents(0.8))

	summary, err := f.runner.Run(context.Background(), []string{"600519", "000858"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.SymbolsRequested)
	assert.Equal(t, 2, summary.SymbolsFailed)
	assert.Len(t, summary.Errors, 2)
	assert.Empty(t, summary.Recommendations)
}

func TestRunNoCompletedAgentsPersistsNothing(t *testing.T) {
	sources := []datasource.Source{providerSource(&flakyProvider{name: "pytdx"}, 1)}
	failingAgents := []agents.Agent{
		&fixedAgent{role: models.RoleMarket, err: errors.New("llm down")},
		&fixedAgent{role: models.RoleTechnical, err: errors.New("llm down")},
	}
	f := newRunnerFixture(t, testRunConfig("single"), sources, failingAgents)

	summary, err := f.runner.Run(context.Background(), []string{"600519"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SymbolsFailed)

	recs, err := f.store.ListRecommendations(context.Background(), store.RecommendationFilter{Symbol: "600519"})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRunBatchedModeSendsOneMessage(t *testing.T) {
	sources := []datasource.Source{providerSource(&flakyProvider{name: "pytdx"}, 1)}
	f := newRunnerFixture(t, testRunConfig("batched"), sources, bullishAgents(0.7))

	summary, err := f.runner.Run(context.Background(), []string{"600519", "000858", "601318"})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.SymbolsSucceeded)
	assert.Equal(t, 1, summary.MessagesSent, "one combined report for the whole run")
	assert.Equal(t, int64(1), f.channel.sends.Load())
}

func TestRunEmptySymbolsUsesWatchlist(t *testing.T) {
	sources := []datasource.Source{providerSource(&flakyProvider{name: "pytdx"}, 1)}
	f := newRunnerFixture(t, testRunConfig("single"), sources, bullishAgents(0.6))

	require.NoError(t, f.store.AddWatch(context.Background(), "600519", "贵州茅台"))

	summary, err := f.runner.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SymbolsSucceeded)
}

func TestRunEmptySymbolsAndWatchlistFails(t *testing.T) {
	sources := []datasource.Source{providerSource(&flakyProvider{name: "pytdx"}, 1)}
	f := newRunnerFixture(t, testRunConfig("single"), sources, bullishAgents(0.6))

	_, err := f.runner.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestNotifyResendsStoredRecommendations(t *testing.T) {
	sources := []datasource.Source{providerSource(&flakyProvider{name: "pytdx"}, 1)}
	f := newRunnerFixture(t, testRunConfig("single"), sources, bullishAgents(0.8))

	summary, err := f.runner.Run(context.Background(), []string{"600519"})
	require.NoError(t, err)
	recID := summary.Recommendations[0].ID

	resent, err := f.runner.Notify(context.Background(), []string{recID, "missing-id"})
	require.NoError(t, err)
	assert.Equal(t, 1, resent.MessagesSent)
	assert.Contains(t, resent.Errors, "missing-id")
}

func TestBacktestDisabledReturnsEmptyResult(t *testing.T) {
	cfg := testRunConfig("single")
	cfg.Backtest.Enabled = false
	sources := []datasource.Source{providerSource(&flakyProvider{name: "pytdx"}, 1)}
	f := newRunnerFixture(t, cfg, sources, bullishAgents(0.8))

	result, err := f.runner.Backtest(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Scored)
}
