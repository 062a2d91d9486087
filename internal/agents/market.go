package agents

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

// MarketAgent judges the overall trading picture: intraday action, volume,
// and short-term momentum.
type MarketAgent struct {
	baseAgent
}

// NewMarketAgent creates a new market agent.
func NewMarketAgent(llm LLMClient, logger zerolog.Logger) *MarketAgent {
	return &MarketAgent{baseAgent{role: models.RoleMarket, llm: llm, logger: logger}}
}

const marketSystemPrompt = `You are a market analyst for Chinese A-share equities.
Judge the overall trading picture for the given stock: intraday price action,
volume behavior, and short-term momentum. ` + responseFormat

// Analyze produces the market verdict.
func (a *MarketAgent) Analyze(ctx context.Context, input *Input) (*models.AgentVerdict, error) {
	user := describeQuote(input) + "\nAssess the current trading picture."
	return a.analyze(ctx, marketSystemPrompt, user, func() *models.AgentVerdict {
		return a.ruleVerdict(input)
	})
}

// ruleVerdict grades the day's move and volume without an LLM.
func (a *MarketAgent) ruleVerdict(input *Input) *models.AgentVerdict {
	change := input.Quote.ChangePercent()

	stance := models.StanceNeutral
	confidence := 0.4
	switch {
	case change >= 2:
		stance = models.StanceBullish
		confidence = 0.6
	case change >= 0.5:
		stance = models.StanceBullish
		confidence = 0.5
	case change <= -2:
		stance = models.StanceBearish
		confidence = 0.6
	case change <= -0.5:
		stance = models.StanceBearish
		confidence = 0.5
	}

	return &models.AgentVerdict{
		Role:       models.RoleMarket,
		Stance:     stance,
		Confidence: confidence,
		Rationale:  fmt.Sprintf("day change %.2f%% against previous close", change),
		Status:     models.VerdictComplete,
	}
}
