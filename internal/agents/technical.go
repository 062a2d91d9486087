package agents

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

// TechnicalAgent reads the indicator snapshot: moving average cross, RSI,
// and MACD momentum. It is the main source of target and stop levels.
type TechnicalAgent struct {
	baseAgent
}

// NewTechnicalAgent creates a new technical agent.
func NewTechnicalAgent(llm LLMClient, logger zerolog.Logger) *TechnicalAgent {
	return &TechnicalAgent{baseAgent{role: models.RoleTechnical, llm: llm, logger: logger}}
}

const technicalSystemPrompt = `You are a technical analyst for Chinese A-share equities.
Base your judgment strictly on the indicators provided: moving averages, RSI,
MACD, and recent momentum. Always propose a TARGET and STOP when you take a
directional stance. ` + responseFormat

// Analyze produces the technical verdict.
func (a *TechnicalAgent) Analyze(ctx context.Context, input *Input) (*models.AgentVerdict, error) {
	user := describeQuote(input) + "\nAssess the technical setup."
	return a.analyze(ctx, technicalSystemPrompt, user, func() *models.AgentVerdict {
		return a.ruleVerdict(input)
	})
}

// ruleVerdict applies the MA cross plus RSI filter and derives levels from
// recent range.
func (a *TechnicalAgent) ruleVerdict(input *Input) *models.AgentVerdict {
	snap := input.Indicators
	price := input.Quote.Close

	verdict := &models.AgentVerdict{
		Role:       models.RoleTechnical,
		Stance:     models.StanceNeutral,
		Confidence: 0.3,
		Rationale:  "insufficient history for indicators",
		Status:     models.VerdictComplete,
	}
	if snap == nil || snap.SMA20 == 0 {
		return verdict
	}

	trend := snap.Trend()
	verdict.Stance = trend
	switch trend {
	case models.StanceBullish:
		verdict.Confidence = 0.6
		if snap.RSI14 > 70 {
			// Overbought: keep the stance but pull the conviction.
			verdict.Confidence = 0.45
		}
		verdict.Target = price * 1.08
		verdict.StopLoss = price * 0.95
		verdict.Rationale = fmt.Sprintf("SMA5 %.2f above SMA20 %.2f, RSI %.1f", snap.SMA5, snap.SMA20, snap.RSI14)
	case models.StanceBearish:
		verdict.Confidence = 0.6
		if snap.RSI14 < 30 {
			verdict.Confidence = 0.45
		}
		verdict.Target = price * 0.92
		verdict.StopLoss = price * 1.05
		verdict.Rationale = fmt.Sprintf("SMA5 %.2f below SMA20 %.2f, RSI %.1f", snap.SMA5, snap.SMA20, snap.RSI14)
	default:
		verdict.Confidence = 0.4
		verdict.Rationale = fmt.Sprintf("mixed signals: SMA5 %.2f vs SMA20 %.2f, MACD hist %.3f", snap.SMA5, snap.SMA20, snap.MACDHist)
	}
	return verdict
}
