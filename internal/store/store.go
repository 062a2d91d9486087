// Package store provides data persistence for recommendations, scores,
// notification messages, and the watchlist.
package store

import (
	"context"
	"time"

	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

// RecommendationFilter narrows recommendation queries. Zero values mean "no
// constraint".
type RecommendationFilter struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}

// WatchItem is one watchlist entry.
type WatchItem struct {
	Symbol  string
	Name    string
	AddedAt time.Time
}

// DataStore is the persistence interface. Implementations must support
// concurrent use from parallel symbol workers.
type DataStore interface {
	// Recommendations are append-only; a stored recommendation is never
	// updated.
	SaveRecommendation(ctx context.Context, rec *models.Recommendation) error
	GetRecommendation(ctx context.Context, id string) (*models.Recommendation, error)
	ListRecommendations(ctx context.Context, filter RecommendationFilter) ([]*models.Recommendation, error)

	// ListUnscored returns recommendations created at or before cutoff that
	// have no Score yet, oldest first, capped at limit.
	ListUnscored(ctx context.Context, cutoff time.Time, limit int) ([]*models.Recommendation, error)

	// SaveScore stores a score; a second score for the same recommendation
	// fails with ErrAlreadyScored.
	SaveScore(ctx context.Context, score *models.Score) error
	GetScore(ctx context.Context, recommendationID string) (*models.Score, error)

	SaveMessage(ctx context.Context, msg *models.NotificationMessage) error
	UpdateMessage(ctx context.Context, msg *models.NotificationMessage) error
	ListMessages(ctx context.Context, recommendationID string) ([]*models.NotificationMessage, error)

	AddWatch(ctx context.Context, symbol, name string) error
	RemoveWatch(ctx context.Context, symbol string) error
	ListWatchlist(ctx context.Context) ([]WatchItem, error)

	Close() error
}
