// Package backtest scores matured recommendations against realized prices.
package backtest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sunnmoony/aistock-assistant-sun/internal/config"
	apperrors "github.com/sunnmoony/aistock-assistant-sun/internal/errors"
	"github.com/sunnmoony/aistock-assistant-sun/internal/logging"
	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
	"github.com/sunnmoony/aistock-assistant-sun/internal/store"
)

// neutralBand is the absolute percent change within which a neutral call
// counts as correct.
const neutralBand = 2.0

// HistorySource supplies realized daily candles for scoring.
type HistorySource interface {
	FetchHistory(ctx context.Context, symbol string, days int) ([]models.Candle, error)
}

// Evaluator scores recommendations once their evaluation window has elapsed.
type Evaluator struct {
	store  store.DataStore
	data   HistorySource
	cfg    config.BacktestConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(st store.DataStore, data HistorySource, cfg config.BacktestConfig, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		store:  st,
		data:   data,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// BatchResult summarizes one evaluation cycle.
type BatchResult struct {
	Scored   int `json:"scored"`
	Deferred int `json:"deferred"`
	Failed   int `json:"failed"`
}

// EvaluateBatch scores up to the configured limit of matured recommendations.
// Recommendations beyond the limit stay unscored and are picked up next
// cycle; per-recommendation failures never abort the batch.
func (e *Evaluator) EvaluateBatch(ctx context.Context) (*BatchResult, error) {
	now := e.now()
	cutoff := now.AddDate(0, 0, -e.minMaturityDays())

	recs, err := e.store.ListUnscored(ctx, cutoff, e.cfg.Limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list unscored recommendations")
	}

	result := &BatchResult{}
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		score, err := e.evaluateOne(ctx, rec, now)
		switch {
		case apperrors.Is(err, apperrors.ErrNotEligible):
			result.Deferred++
		case apperrors.Is(err, apperrors.ErrAlreadyScored):
			// Another worker got there first; nothing lost.
		case err != nil:
			result.Failed++
			e.logger.Warn().
				Str("recommendation_id", rec.ID).
				Str("symbol", rec.Symbol).
				Err(err).
				Msg("Evaluation failed")
		default:
			result.Scored++
			logging.LogScore(e.logger, rec.ID, score.DirectionCorrect, score.Composite)
		}
	}
	return result, nil
}

func (e *Evaluator) evaluateOne(ctx context.Context, rec *models.Recommendation, now time.Time) (*models.Score, error) {
	if err := e.CheckEligibility(rec, now); err != nil {
		return nil, err
	}

	// Fetch enough history to cover the gap between the recommendation date
	// and today, with a small buffer for non-trading days.
	daysBack := int(now.Sub(rec.Timestamp).Hours()/24) + 7
	candles, err := e.data.FetchHistory(ctx, rec.Symbol, daysBack)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to fetch realized prices")
	}

	score, err := e.Evaluate(rec, candles, now)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveScore(ctx, score); err != nil {
		return nil, err
	}
	return score, nil
}

// CheckEligibility enforces both maturity gates: the evaluation window must
// have elapsed and the recommendation must be at least min_age_days old.
func (e *Evaluator) CheckEligibility(rec *models.Recommendation, now time.Time) error {
	age := now.Sub(rec.Timestamp)
	if age < time.Duration(e.cfg.EvalWindowDays)*24*time.Hour {
		return apperrors.Wrapf(apperrors.ErrNotEligible, "window of %d days not elapsed", e.cfg.EvalWindowDays)
	}
	if age < time.Duration(e.cfg.MinAgeDays)*24*time.Hour {
		return apperrors.Wrapf(apperrors.ErrNotEligible, "younger than min age %d days", e.cfg.MinAgeDays)
	}
	return nil
}

func (e *Evaluator) minMaturityDays() int {
	if e.cfg.MinAgeDays > e.cfg.EvalWindowDays {
		return e.cfg.MinAgeDays
	}
	return e.cfg.EvalWindowDays
}

// Evaluate computes the Score for one recommendation from realized candles.
// It does not persist anything.
func (e *Evaluator) Evaluate(rec *models.Recommendation, candles []models.Candle, now time.Time) (*models.Score, error) {
	if err := e.CheckEligibility(rec, now); err != nil {
		return nil, err
	}

	window := windowCandles(candles, rec.Timestamp, e.cfg.EvalWindowDays)
	if len(window) == 0 {
		return nil, apperrors.NewDataError("history", rec.Symbol, "no realized candles in evaluation window", nil)
	}

	baseline := rec.Price
	if baseline == 0 {
		baseline = window[0].Open
	}
	realizedChange := 0.0
	if baseline != 0 {
		realizedChange = (window[len(window)-1].Close - baseline) / baseline * 100
	}

	score := &models.Score{
		RecommendationID: rec.ID,
		EvaluatedAt:      now,
		RealizedChange:   realizedChange,
		RealizedStance:   stanceOfChange(realizedChange),
	}
	score.DirectionCorrect = directionCorrect(rec.Direction, realizedChange)
	score.StopHit, score.TargetHit = scanLevels(window, rec.Direction, rec.StopLoss, rec.Target)
	score.Composite = e.composite(score)
	return score, nil
}

// windowCandles returns candles strictly after the recommendation, capped at
// the evaluation window, in chronological order.
func windowCandles(candles []models.Candle, from time.Time, windowDays int) []models.Candle {
	end := from.AddDate(0, 0, windowDays)
	var out []models.Candle
	for _, c := range candles {
		if c.Date.After(from) && !c.Date.After(end) {
			out = append(out, c)
		}
	}
	return out
}

func stanceOfChange(changePercent float64) models.Stance {
	switch {
	case changePercent > 0:
		return models.StanceBullish
	case changePercent < 0:
		return models.StanceBearish
	default:
		return models.StanceNeutral
	}
}

func directionCorrect(direction models.Stance, changePercent float64) bool {
	switch direction {
	case models.StanceBullish:
		return changePercent > 0
	case models.StanceBearish:
		return changePercent < 0
	case models.StanceNeutral:
		return changePercent >= -neutralBand && changePercent <= neutralBand
	}
	return false
}

// scanLevels walks the window chronologically. Within each candle the stop is
// checked before the target, so a bar that crosses both counts as a stop.
func scanLevels(window []models.Candle, direction models.Stance, stop, target float64) (stopHit, targetHit bool) {
	if direction == models.StanceNeutral {
		return false, false
	}

	for _, c := range window {
		if direction == models.StanceBullish {
			if stop > 0 && c.Low <= stop {
				return true, false
			}
			if target > 0 && c.High >= target {
				return false, true
			}
		} else {
			if stop > 0 && c.High >= stop {
				return true, false
			}
			if target > 0 && c.Low <= target {
				return false, true
			}
		}
	}
	return false, false
}

// composite combines the three outcome flags with the configured weights,
// normalized so the result stays in [0,1].
func (e *Evaluator) composite(score *models.Score) float64 {
	w := e.cfg.ScoreWeights
	total := w.Direction + w.Target + w.Stop
	if total == 0 {
		return 0
	}

	v := 0.0
	if score.DirectionCorrect {
		v += w.Direction
	}
	if score.TargetHit {
		v += w.Target
	}
	if !score.StopHit {
		v += w.Stop
	}
	return v / total
}
