package models

import "time"

// DeliveryStatus is the lifecycle state of a NotificationMessage. Transitions
// are monotone: pending -> sent or pending -> failed, never back.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// NotificationMessage is one rendered payload bound for one channel. Created
// per (Recommendation, enabled channel) pair and mutated only by the
// dispatcher; AttemptCount only ever increases.
type NotificationMessage struct {
	ID               string
	RecommendationID string
	Channel          string
	Payload          string
	Status           DeliveryStatus
	AttemptCount     int
	LastError        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Terminal reports whether the message has reached a final status.
func (m *NotificationMessage) Terminal() bool {
	return m.Status == DeliverySent || m.Status == DeliveryFailed
}

// RunSummary is the partial-result report produced by every pipeline run,
// including runs where some symbols or channels failed.
type RunSummary struct {
	StartedAt        time.Time         `json:"started_at"`
	FinishedAt       time.Time         `json:"finished_at"`
	SymbolsRequested int               `json:"symbols_requested"`
	SymbolsSucceeded int               `json:"symbols_succeeded"`
	SymbolsFailed    int               `json:"symbols_failed"`
	MessagesSent     int               `json:"messages_sent"`
	MessagesFailed   int               `json:"messages_failed"`
	Errors           map[string]string `json:"errors,omitempty"`
	Recommendations  []*Recommendation `json:"recommendations,omitempty"`
}
