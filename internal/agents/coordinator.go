package agents

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/sunnmoony/aistock-assistant-sun/internal/errors"
	"github.com/sunnmoony/aistock-assistant-sun/internal/logging"
	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

// WeightFunc returns the merge weight for an agent role.
type WeightFunc func(role models.AgentRole) float64

// Coordinator fans a symbol out to all agents concurrently and merges the
// completed verdicts into one Recommendation.
type Coordinator struct {
	agents       []Agent
	weightOf     WeightFunc
	agentTimeout time.Duration
	logger       zerolog.Logger
}

// NewCoordinator creates a coordinator over the given agents.
func NewCoordinator(agents []Agent, weightOf WeightFunc, agentTimeout time.Duration, logger zerolog.Logger) *Coordinator {
	if weightOf == nil {
		weightOf = func(models.AgentRole) float64 { return 1 }
	}
	return &Coordinator{
		agents:       agents,
		weightOf:     weightOf,
		agentTimeout: agentTimeout,
		logger:       logger,
	}
}

// DefaultAgents builds the standard four-role agent set.
func DefaultAgents(llm LLMClient, logger zerolog.Logger) []Agent {
	return []Agent{
		NewMarketAgent(llm, logger),
		NewTechnicalAgent(llm, logger),
		NewFundamentalAgent(llm, logger),
		NewNewsAgent(llm, logger),
	}
}

// Analyze runs all agents against the same input snapshot and merges their
// verdicts. Agents that time out or fail are recorded in the Recommendation
// but excluded from the merge; if no agent completes, ErrNoAgentsAvailable is
// returned and nothing is produced for this symbol.
func (c *Coordinator) Analyze(ctx context.Context, input *Input) (*models.Recommendation, error) {
	verdicts := c.runAgentsParallel(ctx, input)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	direction, confidence, ok := MergeVerdicts(verdicts, c.weightOf)
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrNoAgentsAvailable, "symbol %s", input.Symbol)
	}

	rec := &models.Recommendation{
		ID:         uuid.NewString(),
		Symbol:     input.Symbol,
		Timestamp:  time.Now(),
		Verdicts:   verdicts,
		Direction:  direction,
		Confidence: confidence,
		Price:      input.Quote.Close,
		Source:     input.Quote.Source,
	}
	rec.Target, rec.StopLoss = mergeLevels(verdicts, direction)

	logging.LogRecommendation(c.logger, rec.Symbol, string(direction), confidence, len(rec.CompletedVerdicts()))
	return rec, nil
}

type agentResult struct {
	verdict *models.AgentVerdict
}

// runAgentsParallel races all agents under per-agent timeouts and joins on
// every agent finishing or timing out, never on first-to-finish.
func (c *Coordinator) runAgentsParallel(ctx context.Context, input *Input) []models.AgentVerdict {
	resultChan := make(chan agentResult, len(c.agents))
	var wg sync.WaitGroup

	for _, agent := range c.agents {
		wg.Add(1)
		go func(agent Agent) {
			defer wg.Done()
			resultChan <- agentResult{verdict: c.runAgent(ctx, agent, input)}
		}(agent)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var verdicts []models.AgentVerdict
	for result := range resultChan {
		verdicts = append(verdicts, *result.verdict)
	}

	// Fixed role order so the stored verdict list is deterministic.
	order := make(map[models.AgentRole]int, len(models.AllRoles))
	for i, role := range models.AllRoles {
		order[role] = i
	}
	sort.SliceStable(verdicts, func(i, j int) bool {
		return order[verdicts[i].Role] < order[verdicts[j].Role]
	})
	return verdicts
}

func (c *Coordinator) runAgent(ctx context.Context, agent Agent, input *Input) *models.AgentVerdict {
	agentCtx := ctx
	if c.agentTimeout > 0 {
		var cancel context.CancelFunc
		agentCtx, cancel = context.WithTimeout(ctx, c.agentTimeout)
		defer cancel()
	}

	start := time.Now()
	verdict, err := agent.Analyze(agentCtx, input)
	elapsed := time.Since(start)

	if err != nil {
		status := models.VerdictFailed
		if agentCtx.Err() == context.DeadlineExceeded {
			status = models.VerdictTimedOut
		}
		c.logger.Warn().
			Str("agent", string(agent.Role())).
			Str("symbol", input.Symbol).
			Str("status", string(status)).
			Err(err).
			Msg("Agent excluded from merge")
		return &models.AgentVerdict{
			Role:    agent.Role(),
			Stance:  models.StanceNeutral,
			Status:  status,
			Error:   err.Error(),
			Elapsed: elapsed,
		}
	}

	verdict.Role = agent.Role()
	verdict.Elapsed = elapsed
	if verdict.Status == "" {
		verdict.Status = models.VerdictComplete
	}
	return verdict
}

// MergeVerdicts computes the confidence-weighted vote over completed verdicts
// only. Each stance accumulates confidence*weight; scores are normalized by
// the total weight of completed verdicts; the highest score wins with exact
// ties resolved to neutral. Returns ok=false when nothing completed.
func MergeVerdicts(verdicts []models.AgentVerdict, weightOf WeightFunc) (models.Stance, float64, bool) {
	scores := map[models.Stance]float64{}
	totalWeight := 0.0

	for _, v := range verdicts {
		if !v.Complete() {
			continue
		}
		w := weightOf(v.Role)
		if w <= 0 {
			w = 0
		}
		scores[v.Stance] += ClampConfidence(v.Confidence) * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return "", 0, false
	}

	for stance := range scores {
		scores[stance] /= totalWeight
	}

	bull, bear, neut := scores[models.StanceBullish], scores[models.StanceBearish], scores[models.StanceNeutral]

	// A dead heat between the directional camps is no signal at all.
	if bull == bear && bull >= neut {
		return models.StanceNeutral, ClampConfidence(neut), true
	}

	winner, best := models.StanceNeutral, neut
	if bull > best {
		winner, best = models.StanceBullish, bull
	}
	if bear > best {
		winner, best = models.StanceBearish, bear
	}
	return winner, ClampConfidence(best), true
}

// mergeLevels derives target and stop-loss from completed technical and
// fundamental verdicts that agree with the merged direction. The target is
// the weighted average; the stop is the most conservative, i.e. the one that
// triggers first.
func mergeLevels(verdicts []models.AgentVerdict, direction models.Stance) (target, stop float64) {
	if direction == models.StanceNeutral {
		return 0, 0
	}

	var targetSum, targetCount float64
	for _, v := range verdicts {
		if !v.Complete() || v.Stance != direction {
			continue
		}
		if v.Role != models.RoleTechnical && v.Role != models.RoleFundamental {
			continue
		}
		if v.Target > 0 {
			targetSum += v.Target
			targetCount++
		}
		if v.StopLoss > 0 {
			if stop == 0 {
				stop = v.StopLoss
			} else if direction == models.StanceBullish && v.StopLoss > stop {
				stop = v.StopLoss
			} else if direction == models.StanceBearish && v.StopLoss < stop {
				stop = v.StopLoss
			}
		}
	}
	if targetCount > 0 {
		target = targetSum / targetCount
	}
	return target, stop
}
