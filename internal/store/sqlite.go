package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/sunnmoony/aistock-assistant-sun/internal/errors"
	"github.com/sunnmoony/aistock-assistant-sun/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Connection pool for concurrent symbol workers
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Recommendations are immutable once written
	CREATE TABLE IF NOT EXISTS recommendations (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		direction TEXT NOT NULL,
		confidence REAL NOT NULL,
		target REAL,
		stop_loss REAL,
		price REAL,
		source TEXT,
		verdicts TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- One score per recommendation, enforced by the primary key
	CREATE TABLE IF NOT EXISTS scores (
		recommendation_id TEXT PRIMARY KEY,
		evaluated_at DATETIME NOT NULL,
		realized_change REAL NOT NULL,
		realized_stance TEXT NOT NULL,
		direction_correct INTEGER NOT NULL,
		target_hit INTEGER NOT NULL,
		stop_hit INTEGER NOT NULL,
		composite REAL NOT NULL,
		FOREIGN KEY (recommendation_id) REFERENCES recommendations(id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		recommendation_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS watchlist (
		symbol TEXT PRIMARY KEY,
		name TEXT,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_recommendations_symbol ON recommendations(symbol, timestamp);
	CREATE INDEX IF NOT EXISTS idx_recommendations_timestamp ON recommendations(timestamp);
	CREATE INDEX IF NOT EXISTS idx_messages_recommendation ON messages(recommendation_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRecommendation persists a new recommendation.
func (s *SQLiteStore) SaveRecommendation(ctx context.Context, rec *models.Recommendation) error {
	verdicts, err := json.Marshal(rec.Verdicts)
	if err != nil {
		return fmt.Errorf("failed to marshal verdicts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recommendations (id, symbol, timestamp, direction, confidence, target, stop_loss, price, source, verdicts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Symbol, rec.Timestamp, string(rec.Direction), rec.Confidence,
		rec.Target, rec.StopLoss, rec.Price, rec.Source, string(verdicts))
	if err != nil {
		return apperrors.Wrap(err, "failed to save recommendation")
	}
	return nil
}

// GetRecommendation retrieves a recommendation by ID.
func (s *SQLiteStore) GetRecommendation(ctx context.Context, id string) (*models.Recommendation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, timestamp, direction, confidence, target, stop_loss, price, source, verdicts
		FROM recommendations WHERE id = ?`, id)

	rec, err := scanRecommendation(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrDataNotFound
	}
	return rec, err
}

// ListRecommendations queries recommendations by filter, newest first.
func (s *SQLiteStore) ListRecommendations(ctx context.Context, filter RecommendationFilter) ([]*models.Recommendation, error) {
	query := `
		SELECT id, symbol, timestamp, direction, confidence, target, stop_loss, price, source, verdicts
		FROM recommendations WHERE 1=1`
	var args []interface{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.From.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.To)
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query recommendations")
	}
	defer rows.Close()

	return collectRecommendations(rows)
}

// ListUnscored returns unscored recommendations created at or before cutoff,
// oldest first so deferred work is picked up next cycle.
func (s *SQLiteStore) ListUnscored(ctx context.Context, cutoff time.Time, limit int) ([]*models.Recommendation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.symbol, r.timestamp, r.direction, r.confidence, r.target, r.stop_loss, r.price, r.source, r.verdicts
		FROM recommendations r
		LEFT JOIN scores sc ON sc.recommendation_id = r.id
		WHERE sc.recommendation_id IS NULL AND r.timestamp <= ?
		ORDER BY r.timestamp ASC
		LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query unscored recommendations")
	}
	defer rows.Close()

	return collectRecommendations(rows)
}

// SaveScore stores a score. The scores primary key makes a second score for
// the same recommendation a constraint violation, surfaced as ErrAlreadyScored.
func (s *SQLiteStore) SaveScore(ctx context.Context, score *models.Score) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scores (recommendation_id, evaluated_at, realized_change, realized_stance, direction_correct, target_hit, stop_hit, composite)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		score.RecommendationID, score.EvaluatedAt, score.RealizedChange, string(score.RealizedStance),
		boolToInt(score.DirectionCorrect), boolToInt(score.TargetHit), boolToInt(score.StopHit), score.Composite)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return apperrors.ErrAlreadyScored
		}
		return apperrors.Wrap(err, "failed to save score")
	}
	return nil
}

// GetScore retrieves the score for a recommendation.
func (s *SQLiteStore) GetScore(ctx context.Context, recommendationID string) (*models.Score, error) {
	var score models.Score
	var stance string
	var directionCorrect, targetHit, stopHit int

	err := s.db.QueryRowContext(ctx, `
		SELECT recommendation_id, evaluated_at, realized_change, realized_stance, direction_correct, target_hit, stop_hit, composite
		FROM scores WHERE recommendation_id = ?`, recommendationID).Scan(
		&score.RecommendationID, &score.EvaluatedAt, &score.RealizedChange, &stance,
		&directionCorrect, &targetHit, &stopHit, &score.Composite)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrDataNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get score")
	}

	score.RealizedStance = models.Stance(stance)
	score.DirectionCorrect = directionCorrect != 0
	score.TargetHit = targetHit != 0
	score.StopHit = stopHit != 0
	return &score, nil
}

// SaveMessage persists a new notification message.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *models.NotificationMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, recommendation_id, channel, payload, status, attempt_count, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.RecommendationID, msg.Channel, msg.Payload, string(msg.Status),
		msg.AttemptCount, msg.LastError, msg.CreatedAt, msg.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to save message")
	}
	return nil
}

// UpdateMessage updates delivery status, attempt count, and last error.
func (s *SQLiteStore) UpdateMessage(ctx context.Context, msg *models.NotificationMessage) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET status = ?, attempt_count = ?, last_error = ?, updated_at = ?
		WHERE id = ?`,
		string(msg.Status), msg.AttemptCount, msg.LastError, msg.UpdatedAt, msg.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update message")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrDataNotFound
	}
	return nil
}

// ListMessages returns all messages for a recommendation.
func (s *SQLiteStore) ListMessages(ctx context.Context, recommendationID string) ([]*models.NotificationMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recommendation_id, channel, payload, status, attempt_count, last_error, created_at, updated_at
		FROM messages WHERE recommendation_id = ? ORDER BY created_at ASC`, recommendationID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query messages")
	}
	defer rows.Close()

	var msgs []*models.NotificationMessage
	for rows.Next() {
		var msg models.NotificationMessage
		var status string
		if err := rows.Scan(&msg.ID, &msg.RecommendationID, &msg.Channel, &msg.Payload, &status,
			&msg.AttemptCount, &msg.LastError, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan message")
		}
		msg.Status = models.DeliveryStatus(status)
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

// AddWatch adds a symbol to the watchlist.
func (s *SQLiteStore) AddWatch(ctx context.Context, symbol, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO watchlist (symbol, name) VALUES (?, ?)`, symbol, name)
	if err != nil {
		return apperrors.Wrap(err, "failed to add watch")
	}
	return nil
}

// RemoveWatch removes a symbol from the watchlist.
func (s *SQLiteStore) RemoveWatch(ctx context.Context, symbol string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE symbol = ?`, symbol)
	if err != nil {
		return apperrors.Wrap(err, "failed to remove watch")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrSymbolNotFound
	}
	return nil
}

// ListWatchlist returns all watched symbols in insertion order.
func (s *SQLiteStore) ListWatchlist(ctx context.Context) ([]WatchItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, name, added_at FROM watchlist ORDER BY added_at ASC`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query watchlist")
	}
	defer rows.Close()

	var items []WatchItem
	for rows.Next() {
		var item WatchItem
		var name sql.NullString
		if err := rows.Scan(&item.Symbol, &name, &item.AddedAt); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan watch item")
		}
		item.Name = name.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecommendation(row rowScanner) (*models.Recommendation, error) {
	var rec models.Recommendation
	var direction, verdicts string
	var target, stopLoss, price sql.NullFloat64
	var source sql.NullString

	err := row.Scan(&rec.ID, &rec.Symbol, &rec.Timestamp, &direction, &rec.Confidence,
		&target, &stopLoss, &price, &source, &verdicts)
	if err != nil {
		return nil, err
	}

	rec.Direction = models.Stance(direction)
	rec.Target = target.Float64
	rec.StopLoss = stopLoss.Float64
	rec.Price = price.Float64
	rec.Source = source.String
	if verdicts != "" {
		if err := json.Unmarshal([]byte(verdicts), &rec.Verdicts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verdicts: %w", err)
		}
	}
	return &rec, nil
}

func collectRecommendations(rows *sql.Rows) ([]*models.Recommendation, error) {
	var recs []*models.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan recommendation")
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
