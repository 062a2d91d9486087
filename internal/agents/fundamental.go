package agents

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

// FundamentalAgent weighs the longer horizon: where price sits against its
// recent range and the 20-day drift.
type FundamentalAgent struct {
	baseAgent
}

// NewFundamentalAgent creates a new fundamental agent.
func NewFundamentalAgent(llm LLMClient, logger zerolog.Logger) *FundamentalAgent {
	return &FundamentalAgent{baseAgent{role: models.RoleFundamental, llm: llm, logger: logger}}
}

const fundamentalSystemPrompt = `You are a fundamental analyst for Chinese A-share equities.
Judge whether the stock looks attractive on a weeks-to-months horizon given
its recent price development and what you know about the company. ` + responseFormat

// Analyze produces the fundamental verdict.
func (a *FundamentalAgent) Analyze(ctx context.Context, input *Input) (*models.AgentVerdict, error) {
	user := describeQuote(input) + "\nAssess the stock on a weeks-to-months horizon."
	return a.analyze(ctx, fundamentalSystemPrompt, user, func() *models.AgentVerdict {
		return a.ruleVerdict(input)
	})
}

// ruleVerdict uses position within the recent range as a cheap value proxy.
func (a *FundamentalAgent) ruleVerdict(input *Input) *models.AgentVerdict {
	verdict := &models.AgentVerdict{
		Role:       models.RoleFundamental,
		Stance:     models.StanceNeutral,
		Confidence: 0.3,
		Rationale:  "insufficient history for range analysis",
		Status:     models.VerdictComplete,
	}
	if len(input.History) < 20 {
		return verdict
	}

	low, high := rangeOf(input.History)
	if high <= low {
		return verdict
	}
	price := input.Quote.Close
	position := (price - low) / (high - low)

	drift := 0.0
	if input.Indicators != nil {
		drift = input.Indicators.Change20d
	}

	switch {
	case position < 0.3 && drift > -10:
		// Near the bottom of the range without a collapse behind it.
		verdict.Stance = models.StanceBullish
		verdict.Confidence = 0.55
		verdict.Target = low + (high-low)*0.6
		verdict.StopLoss = low * 0.97
	case position > 0.85 && drift > 15:
		verdict.Stance = models.StanceBearish
		verdict.Confidence = 0.5
		verdict.Target = low + (high-low)*0.5
		verdict.StopLoss = high * 1.03
	default:
		verdict.Confidence = 0.4
	}
	verdict.Rationale = fmt.Sprintf("price at %.0f%% of recent range, 20d drift %.1f%%", position*100, drift)
	return verdict
}

func rangeOf(candles []models.Candle) (low, high float64) {
	low = candles[0].Low
	high = candles[0].High
	for _, c := range candles {
		if c.Low < low {
			low = c.Low
		}
		if c.High > high {
			high = c.High
		}
	}
	return low, high
}
