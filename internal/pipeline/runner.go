// Package pipeline wires the data manager, coordinator, evaluator, and
// dispatcher into the run, backtest, and notify entry points.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sunnmoony/aistock-assistant-sun/internal/agents"
	"github.com/sunnmoony/aistock-assistant-sun/internal/analysis"
	"github.com/sunnmoony/aistock-assistant-sun/internal/backtest"
	"github.com/sunnmoony/aistock-assistant-sun/internal/config"
	"github.com/sunnmoony/aistock-assistant-sun/internal/datasource"
	apperrors "github.com/sunnmoony/aistock-assistant-sun/internal/errors"
	"github.com/sunnmoony/aistock-assistant-sun/internal/logging"
	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
	"github.com/sunnmoony/aistock-assistant-sun/internal/notify"
	"github.com/sunnmoony/aistock-assistant-sun/internal/store"
)

// historyDays is how much daily history the agents get to work with.
const historyDays = 60

// Runner executes the pipeline. Symbols are processed by a bounded worker
// pool; one symbol's failure never blocks the others.
type Runner struct {
	cfg         *config.Config
	store       store.DataStore
	data        *datasource.Manager
	coordinator *agents.Coordinator
	dispatcher  *notify.Dispatcher
	evaluator   *backtest.Evaluator
	logger      zerolog.Logger
}

// NewRunner wires a runner from its components.
func NewRunner(cfg *config.Config, st store.DataStore, data *datasource.Manager,
	coordinator *agents.Coordinator, dispatcher *notify.Dispatcher,
	evaluator *backtest.Evaluator, logger zerolog.Logger) *Runner {
	return &Runner{
		cfg:         cfg,
		store:       st,
		data:        data,
		coordinator: coordinator,
		dispatcher:  dispatcher,
		evaluator:   evaluator,
		logger:      logger,
	}
}

// Run analyzes the given symbols (or the stored watchlist when empty) and
// dispatches the results. It always returns a summary, also on partial
// failure; the error is reserved for run-level problems like an empty symbol
// set.
func (r *Runner) Run(ctx context.Context, symbols []string) (*models.RunSummary, error) {
	if len(symbols) == 0 {
		items, err := r.store.ListWatchlist(ctx)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to load watchlist")
		}
		for _, item := range items {
			symbols = append(symbols, item.Symbol)
		}
	}
	if len(symbols) == 0 {
		return nil, apperrors.NewValidationError("symbols", symbols, "no symbols given and watchlist is empty")
	}

	summary := &models.RunSummary{
		StartedAt:        time.Now(),
		SymbolsRequested: len(symbols),
		Errors:           make(map[string]string),
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, r.cfg.Run.Concurrency)
	)

	single := r.dispatcher != nil && r.cfg.Notification.Enabled && r.cfg.Notification.Mode == "single"

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			rec, err := r.analyzeSymbol(ctx, symbol)
			if err != nil {
				mu.Lock()
				summary.SymbolsFailed++
				summary.Errors[symbol] = err.Error()
				mu.Unlock()
				return
			}

			var sent, failed int
			if single {
				sent, failed = countOutcomes(r.dispatcher.Dispatch(ctx, []*models.Recommendation{rec}))
			}

			mu.Lock()
			summary.SymbolsSucceeded++
			summary.Recommendations = append(summary.Recommendations, rec)
			summary.MessagesSent += sent
			summary.MessagesFailed += failed
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		summary.FinishedAt = time.Now()
		return summary, err
	}

	// Batched mode sends one combined report per channel after all symbols
	// finished.
	if r.dispatcher != nil && r.cfg.Notification.Enabled && r.cfg.Notification.Mode == "batched" &&
		len(summary.Recommendations) > 0 {
		sent, failed := countOutcomes(r.dispatcher.Dispatch(ctx, summary.Recommendations))
		summary.MessagesSent += sent
		summary.MessagesFailed += failed
	}

	summary.FinishedAt = time.Now()
	return summary, nil
}

// analyzeSymbol runs one symbol end to end: fetch, analyze, persist.
func (r *Runner) analyzeSymbol(ctx context.Context, symbol string) (*models.Recommendation, error) {
	logger := logging.WithSymbol(r.logger, symbol)

	quote, err := r.data.FetchQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	history, err := r.data.FetchHistory(ctx, symbol, historyDays)
	if err != nil {
		// Agents degrade gracefully without history.
		logger.Warn().Err(err).Msg("History unavailable, analyzing on quote only")
		history = nil
	}

	input := &agents.Input{
		Symbol:     symbol,
		Quote:      quote,
		History:    history,
		Indicators: analysis.ComputeSnapshot(history),
	}

	rec, err := r.coordinator.Analyze(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := r.store.SaveRecommendation(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Backtest runs one evaluation cycle.
func (r *Runner) Backtest(ctx context.Context) (*backtest.BatchResult, error) {
	if r.evaluator == nil || !r.cfg.Backtest.Enabled {
		return &backtest.BatchResult{}, nil
	}
	return r.evaluator.EvaluateBatch(ctx)
}

// Notify re-dispatches the given stored recommendations.
func (r *Runner) Notify(ctx context.Context, recommendationIDs []string) (*models.RunSummary, error) {
	if r.dispatcher == nil {
		return nil, apperrors.ErrNoChannelsEnabled
	}

	summary := &models.RunSummary{
		StartedAt: time.Now(),
		Errors:    make(map[string]string),
	}

	var recs []*models.Recommendation
	for _, id := range recommendationIDs {
		rec, err := r.store.GetRecommendation(ctx, id)
		if err != nil {
			summary.Errors[id] = err.Error()
			continue
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		summary.FinishedAt = time.Now()
		return summary, apperrors.ErrDataNotFound
	}

	sent, failed := countOutcomes(r.dispatcher.Dispatch(ctx, recs))
	summary.MessagesSent = sent
	summary.MessagesFailed = failed
	summary.Recommendations = recs
	summary.FinishedAt = time.Now()
	return summary, nil
}

func countOutcomes(msgs []*models.NotificationMessage) (sent, failed int) {
	for _, msg := range msgs {
		switch msg.Status {
		case models.DeliverySent:
			sent++
		case models.DeliveryFailed:
			failed++
		}
	}
	return sent, failed
}
