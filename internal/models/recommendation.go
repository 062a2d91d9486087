package models

import "time"

// AgentRole identifies one of the four analysis perspectives.
type AgentRole string

const (
	RoleMarket      AgentRole = "market"
	RoleTechnical   AgentRole = "technical"
	RoleFundamental AgentRole = "fundamental"
	RoleNews        AgentRole = "news"
)

// AllRoles lists the roles every analysis run fans out to.
var AllRoles = []AgentRole{RoleMarket, RoleTechnical, RoleFundamental, RoleNews}

// Stance is a directional call on a symbol.
type Stance string

const (
	StanceBullish Stance = "bullish"
	StanceBearish Stance = "bearish"
	StanceNeutral Stance = "neutral"
)

// VerdictStatus records how an agent's attempt ended.
type VerdictStatus string

const (
	VerdictComplete VerdictStatus = "complete"
	VerdictTimedOut VerdictStatus = "timed_out"
	VerdictFailed   VerdictStatus = "failed"
)

// AgentVerdict is one agent's view of a symbol. Only verdicts with status
// complete participate in the merge.
type AgentVerdict struct {
	Role       AgentRole     `json:"role"`
	Stance     Stance        `json:"stance"`
	Confidence float64       `json:"confidence"`
	Target     float64       `json:"target,omitempty"`
	StopLoss   float64       `json:"stop_loss,omitempty"`
	Rationale  string        `json:"rationale,omitempty"`
	Status     VerdictStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`
}

// Complete reports whether the verdict finished and may be merged.
func (v *AgentVerdict) Complete() bool {
	return v.Status == VerdictComplete
}

// Recommendation is the merged output of all agents for one symbol at one
// point in time. Immutable after creation; a backtest Score references it by
// ID and never mutates it.
type Recommendation struct {
	ID         string
	Symbol     string
	Timestamp  time.Time
	Verdicts   []AgentVerdict
	Direction  Stance
	Confidence float64
	Target     float64
	StopLoss   float64
	Price      float64
	Source     string
}

// CompletedVerdicts returns the subset of verdicts eligible for merging.
func (r *Recommendation) CompletedVerdicts() []AgentVerdict {
	out := make([]AgentVerdict, 0, len(r.Verdicts))
	for _, v := range r.Verdicts {
		if v.Complete() {
			out = append(out, v)
		}
	}
	return out
}

// Age returns how old the recommendation is relative to now.
func (r *Recommendation) Age(now time.Time) time.Duration {
	return now.Sub(r.Timestamp)
}

// Score is the backtest result for one Recommendation. At most one Score
// exists per Recommendation.
type Score struct {
	RecommendationID string
	EvaluatedAt      time.Time
	RealizedChange   float64
	RealizedStance   Stance
	DirectionCorrect bool
	TargetHit        bool
	StopHit          bool
	Composite        float64
}
