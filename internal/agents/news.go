package agents

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

// NewsAgent estimates sentiment. Without a news feed wired in, the rule-based
// fallback reads crowd behavior from volume and the day's move; with an LLM
// it can lean on whatever the model knows about the name.
type NewsAgent struct {
	baseAgent
}

// NewNewsAgent creates a new news/sentiment agent.
func NewNewsAgent(llm LLMClient, logger zerolog.Logger) *NewsAgent {
	return &NewsAgent{baseAgent{role: models.RoleNews, llm: llm, logger: logger}}
}

const newsSystemPrompt = `You are a news and sentiment analyst for Chinese A-share equities.
Judge the likely sentiment around this stock: recent coverage, sector mood,
and how the crowd is positioned. If you have no relevant knowledge, answer
neutral with low confidence. ` + responseFormat

// Analyze produces the sentiment verdict.
func (a *NewsAgent) Analyze(ctx context.Context, input *Input) (*models.AgentVerdict, error) {
	user := describeQuote(input) + "\nAssess sentiment around this stock."
	return a.analyze(ctx, newsSystemPrompt, user, func() *models.AgentVerdict {
		return a.ruleVerdict(input)
	})
}

// ruleVerdict treats a large move on heavy volume as a sentiment signal.
func (a *NewsAgent) ruleVerdict(input *Input) *models.AgentVerdict {
	change := input.Quote.ChangePercent()

	verdict := &models.AgentVerdict{
		Role:       models.RoleNews,
		Stance:     models.StanceNeutral,
		Confidence: 0.3,
		Rationale:  "no news feed available, sentiment inferred from tape",
		Status:     models.VerdictComplete,
	}

	heavyVolume := avgVolume(input.History) > 0 &&
		float64(input.Quote.Volume) > 1.5*avgVolume(input.History)

	switch {
	case change > 3 && heavyVolume:
		verdict.Stance = models.StanceBullish
		verdict.Confidence = 0.5
		verdict.Rationale = fmt.Sprintf("%.1f%% move on heavy volume suggests positive flow", change)
	case change < -3 && heavyVolume:
		verdict.Stance = models.StanceBearish
		verdict.Confidence = 0.5
		verdict.Rationale = fmt.Sprintf("%.1f%% drop on heavy volume suggests negative flow", change)
	}
	return verdict
}

func avgVolume(candles []models.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	var sum int64
	for _, c := range candles {
		sum += c.Volume
	}
	return float64(sum) / float64(len(candles))
}
