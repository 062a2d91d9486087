// Package agents implements the multi-agent analysis coordinator and the
// four analysis perspectives it fans out to.
package agents

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sunnmoony/aistock-assistant-sun/internal/analysis"
	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

// Input is the immutable snapshot every agent analyzes. All four agents see
// the same Input for one symbol.
type Input struct {
	Symbol     string
	Quote      *models.Quote
	History    []models.Candle
	Indicators *analysis.Snapshot
}

// Agent is one analysis perspective.
type Agent interface {
	Role() models.AgentRole
	Analyze(ctx context.Context, input *Input) (*models.AgentVerdict, error)
}

// baseAgent carries the pieces shared by all agents.
type baseAgent struct {
	role   models.AgentRole
	llm    LLMClient
	logger zerolog.Logger
}

func (a *baseAgent) Role() models.AgentRole {
	return a.role
}

// analyze runs the LLM with the agent's prompts and falls back to the given
// rule-based verdict when no LLM is configured or the call/parse fails. The
// fallback keeps the pipeline usable offline.
func (a *baseAgent) analyze(ctx context.Context, system, user string, fallback func() *models.AgentVerdict) (*models.AgentVerdict, error) {
	if a.llm == nil {
		return fallback(), nil
	}

	response, err := a.llm.Complete(ctx, system, user)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn().Str("agent", string(a.role)).Err(err).Msg("LLM call failed, using rule-based verdict")
		return fallback(), nil
	}

	verdict, err := parseVerdict(a.role, response)
	if err != nil {
		a.logger.Warn().Str("agent", string(a.role)).Err(err).Msg("LLM response unparseable, using rule-based verdict")
		return fallback(), nil
	}
	return verdict, nil
}

// parseVerdict extracts the structured verdict from an LLM response in the
// line-prefixed format the prompts request:
//
//	STANCE: bullish
//	CONFIDENCE: 0.8
//	TARGET: 1890.5
//	STOP: 1720.0
//	REASON: ...
func parseVerdict(role models.AgentRole, response string) (*models.AgentVerdict, error) {
	verdict := &models.AgentVerdict{
		Role:   role,
		Status: models.VerdictComplete,
	}

	scanner := bufio.NewScanner(strings.NewReader(response))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		upper := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(upper, "STANCE:"):
			stance := strings.ToLower(strings.TrimSpace(line[len("STANCE:"):]))
			switch models.Stance(stance) {
			case models.StanceBullish, models.StanceBearish, models.StanceNeutral:
				verdict.Stance = models.Stance(stance)
			default:
				return nil, fmt.Errorf("unknown stance %q", stance)
			}
		case strings.HasPrefix(upper, "CONFIDENCE:"):
			v, err := strconv.ParseFloat(strings.TrimSpace(line[len("CONFIDENCE:"):]), 64)
			if err != nil {
				return nil, fmt.Errorf("bad confidence: %w", err)
			}
			verdict.Confidence = ClampConfidence(v)
		case strings.HasPrefix(upper, "TARGET:"):
			if v, err := strconv.ParseFloat(strings.TrimSpace(line[len("TARGET:"):]), 64); err == nil {
				verdict.Target = v
			}
		case strings.HasPrefix(upper, "STOP:"):
			if v, err := strconv.ParseFloat(strings.TrimSpace(line[len("STOP:"):]), 64); err == nil {
				verdict.StopLoss = v
			}
		case strings.HasPrefix(upper, "REASON:"):
			verdict.Rationale = strings.TrimSpace(line[len("REASON:"):])
		}
	}

	if verdict.Stance == "" {
		return nil, fmt.Errorf("response missing STANCE line")
	}
	return verdict, nil
}

// ClampConfidence limits a confidence value to [0, 1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// describeQuote renders the shared quote context used in prompts.
func describeQuote(input *Input) string {
	q := input.Quote
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s (%s)\n", q.Symbol, q.Name)
	fmt.Fprintf(&b, "Price: %.2f (%.2f%% vs prev close)\n", q.Close, q.ChangePercent())
	fmt.Fprintf(&b, "Open: %.2f High: %.2f Low: %.2f Volume: %d\n", q.Open, q.High, q.Low, q.Volume)
	if s := input.Indicators; s != nil {
		fmt.Fprintf(&b, "SMA5: %.2f SMA20: %.2f RSI14: %.1f MACD hist: %.3f\n", s.SMA5, s.SMA20, s.RSI14, s.MACDHist)
		fmt.Fprintf(&b, "5d change: %.2f%% 20d change: %.2f%%\n", s.Change5d, s.Change20d)
	}
	return b.String()
}

const responseFormat = `Respond in exactly this format:
STANCE: bullish|bearish|neutral
CONFIDENCE: 0.0-1.0
TARGET: <price or omit>
STOP: <price or omit>
REASON: <one or two sentences>`
