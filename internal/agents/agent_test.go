package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

// scriptedLLM returns a canned response or error.
type scriptedLLM struct {
	response string
	err      error
}

func (s *scriptedLLM) Complete(ctx context.Context, system, user string) (string, error) {
	return s.response, s.err
}

func TestParseVerdictFullResponse(t *testing.T) {
	response := `STANCE: bullish
CONFIDENCE: 0.8
TARGET: 1890.5
STOP: 1720.0
REASON: strong momentum above the 20-day average`

	verdict, err := parseVerdict(models.RoleTechnical, response)
	require.NoError(t, err)
	assert.Equal(t, models.StanceBullish, verdict.Stance)
	assert.InDelta(t, 0.8, verdict.Confidence, 1e-9)
	assert.InDelta(t, 1890.5, verdict.Target, 1e-9)
	assert.InDelta(t, 1720.0, verdict.StopLoss, 1e-9)
	assert.Contains(t, verdict.Rationale, "momentum")
	assert.Equal(t, models.VerdictComplete, verdict.Status)
}

func TestParseVerdictMissingStance(t *testing.T) {
	_, err := parseVerdict(models.RoleMarket, "CONFIDENCE: 0.5\nREASON: unclear")
	assert.Error(t, err)
}

func TestParseVerdictUnknownStance(t *testing.T) {
	_, err := parseVerdict(models.RoleMarket, "STANCE: sideways\nCONFIDENCE: 0.5")
	assert.Error(t, err)
}

func TestParseVerdictClampsConfidence(t *testing.T) {
	verdict, err := parseVerdict(models.RoleNews, "STANCE: bearish\nCONFIDENCE: 1.7")
	require.NoError(t, err)
	assert.Equal(t, 1.0, verdict.Confidence)
}

func TestParseVerdictOptionalLevelsOmitted(t *testing.T) {
	verdict, err := parseVerdict(models.RoleMarket, "STANCE: neutral\nCONFIDENCE: 0.4")
	require.NoError(t, err)
	assert.Zero(t, verdict.Target)
	assert.Zero(t, verdict.StopLoss)
}

func TestAgentFallsBackWithoutLLM(t *testing.T) {
	agent := NewMarketAgent(nil, zerolog.Nop())
	input := testInput("600519")
	input.Quote.PrevClose = 100
	input.Quote.Close = 103

	verdict, err := agent.Analyze(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, models.VerdictComplete, verdict.Status)
	assert.Equal(t, models.StanceBullish, verdict.Stance, "a 3 percent day is bullish under the rule fallback")
}

func TestAgentFallsBackOnLLMError(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("upstream 502")}
	agent := NewTechnicalAgent(llm, zerolog.Nop())

	verdict, err := agent.Analyze(context.Background(), testInput("600519"))
	require.NoError(t, err)
	assert.Equal(t, models.VerdictComplete, verdict.Status)
}

func TestAgentFallsBackOnUnparseableResponse(t *testing.T) {
	llm := &scriptedLLM{response: "I think the stock looks fine."}
	agent := NewNewsAgent(llm, zerolog.Nop())

	verdict, err := agent.Analyze(context.Background(), testInput("600519"))
	require.NoError(t, err)
	assert.Equal(t, models.VerdictComplete, verdict.Status)
}

func TestAgentUsesParsedLLMVerdict(t *testing.T) {
	llm := &scriptedLLM{response: "STANCE: bearish\nCONFIDENCE: 0.65\nREASON: weak demand"}
	agent := NewFundamentalAgent(llm, zerolog.Nop())

	verdict, err := agent.Analyze(context.Background(), testInput("600519"))
	require.NoError(t, err)
	assert.Equal(t, models.StanceBearish, verdict.Stance)
	assert.InDelta(t, 0.65, verdict.Confidence, 1e-9)
}

func TestAgentPropagatesCancellation(t *testing.T) {
	llm := &scriptedLLM{err: context.Canceled}
	agent := NewMarketAgent(llm, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agent.Analyze(ctx, testInput("600519"))
	assert.ErrorIs(t, err, context.Canceled)
}
