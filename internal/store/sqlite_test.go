package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sunnmoony/aistock-assistant-sun/internal/errors"
	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRecommendation(symbol string, ts time.Time) *models.Recommendation {
	return &models.Recommendation{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Timestamp:  ts,
		Direction:  models.StanceBullish,
		Confidence: 0.8,
		Target:     1900,
		StopLoss:   1700,
		Price:      1800,
		Source:     "pytdx",
		Verdicts: []models.AgentVerdict{
			{Role: models.RoleMarket, Stance: models.StanceBullish, Confidence: 0.7, Status: models.VerdictComplete},
			{Role: models.RoleTechnical, Stance: models.StanceBullish, Confidence: 0.9, Status: models.VerdictComplete},
		},
	}
}

func TestRecommendationRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecommendation("600519", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, st.SaveRecommendation(ctx, rec))

	got, err := st.GetRecommendation(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Symbol, got.Symbol)
	assert.Equal(t, rec.Direction, got.Direction)
	assert.Equal(t, rec.Confidence, got.Confidence)
	assert.Equal(t, rec.Source, got.Source)
	require.Len(t, got.Verdicts, 2)
	assert.Equal(t, models.RoleTechnical, got.Verdicts[1].Role)
}

func TestGetRecommendationNotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.GetRecommendation(context.Background(), "missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrDataNotFound))
}

func TestListRecommendationsFilters(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, st.SaveRecommendation(ctx, sampleRecommendation("600519", base.AddDate(0, 0, -3))))
	require.NoError(t, st.SaveRecommendation(ctx, sampleRecommendation("600519", base.AddDate(0, 0, -1))))
	require.NoError(t, st.SaveRecommendation(ctx, sampleRecommendation("000858", base)))

	bySymbol, err := st.ListRecommendations(ctx, RecommendationFilter{Symbol: "600519"})
	require.NoError(t, err)
	assert.Len(t, bySymbol, 2)

	limited, err := st.ListRecommendations(ctx, RecommendationFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "000858", limited[0].Symbol, "newest first")
}

func TestSaveScoreRejectsSecondScore(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecommendation("600519", time.Now().AddDate(0, 0, -20))
	require.NoError(t, st.SaveRecommendation(ctx, rec))

	score := &models.Score{
		RecommendationID: rec.ID,
		EvaluatedAt:      time.Now().UTC(),
		RealizedChange:   5.0,
		RealizedStance:   models.StanceBullish,
		DirectionCorrect: true,
		Composite:        0.7,
	}
	require.NoError(t, st.SaveScore(ctx, score))

	err := st.SaveScore(ctx, score)
	assert.True(t, apperrors.Is(err, apperrors.ErrAlreadyScored))

	got, err := st.GetScore(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.DirectionCorrect)
	assert.InDelta(t, 5.0, got.RealizedChange, 1e-9)
}

func TestListUnscoredExcludesScoredAndRespectsCutoff(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	old := sampleRecommendation("600519", now.AddDate(0, 0, -20))
	older := sampleRecommendation("000858", now.AddDate(0, 0, -25))
	fresh := sampleRecommendation("601318", now.AddDate(0, 0, -2))
	for _, rec := range []*models.Recommendation{old, older, fresh} {
		require.NoError(t, st.SaveRecommendation(ctx, rec))
	}
	require.NoError(t, st.SaveScore(ctx, &models.Score{
		RecommendationID: older.ID,
		EvaluatedAt:      now,
		RealizedStance:   models.StanceBullish,
	}))

	cutoff := now.AddDate(0, 0, -14)
	unscored, err := st.ListUnscored(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, unscored, 1)
	assert.Equal(t, old.ID, unscored[0].ID)
}

func TestListUnscoredOldestFirstWithLimit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	var ids []string
	for i := 0; i < 4; i++ {
		rec := sampleRecommendation("600519", now.AddDate(0, 0, -30+i))
		ids = append(ids, rec.ID)
		require.NoError(t, st.SaveRecommendation(ctx, rec))
	}

	unscored, err := st.ListUnscored(ctx, now.AddDate(0, 0, -14), 2)
	require.NoError(t, err)
	require.Len(t, unscored, 2)
	assert.Equal(t, ids[0], unscored[0].ID)
	assert.Equal(t, ids[1], unscored[1].ID)
}

func TestMessageLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	msg := &models.NotificationMessage{
		ID:               uuid.NewString(),
		RecommendationID: "rec-1",
		Channel:          "wechat",
		Payload:          "## 600519 分析结果",
		Status:           models.DeliveryPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, st.SaveMessage(ctx, msg))

	msg.Status = models.DeliverySent
	msg.AttemptCount = 2
	msg.UpdatedAt = now.Add(time.Second)
	require.NoError(t, st.UpdateMessage(ctx, msg))

	msgs, err := st.ListMessages(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.DeliverySent, msgs[0].Status)
	assert.Equal(t, 2, msgs[0].AttemptCount)
}

func TestUpdateMessageUnknownID(t *testing.T) {
	st := newTestStore(t)
	msg := &models.NotificationMessage{ID: "nope", Status: models.DeliverySent}
	err := st.UpdateMessage(context.Background(), msg)
	assert.True(t, apperrors.Is(err, apperrors.ErrDataNotFound))
}

func TestWatchlistAddListRemove(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AddWatch(ctx, "600519", "贵州茅台"))
	require.NoError(t, st.AddWatch(ctx, "000858", "五粮液"))

	items, err := st.ListWatchlist(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "600519", items[0].Symbol)
	assert.Equal(t, "贵州茅台", items[0].Name)

	require.NoError(t, st.RemoveWatch(ctx, "600519"))
	items, err = st.ListWatchlist(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	err = st.RemoveWatch(ctx, "600519")
	assert.True(t, apperrors.Is(err, apperrors.ErrSymbolNotFound))
}

func TestConcurrentSavesFromWorkers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(i int) {
			done <- st.SaveRecommendation(ctx, sampleRecommendation("600519", now.Add(time.Duration(i)*time.Second)))
		}(i)
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}

	recs, err := st.ListRecommendations(ctx, RecommendationFilter{Symbol: "600519"})
	require.NoError(t, err)
	assert.Len(t, recs, 8)
}
