package watchlist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
	"github.com/B0TMirage/cryptopulse/pkg/models"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps the coins as a JSON array in a TEXT column and the
// update time as unix milliseconds.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewSQLiteStore(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteStore{db: db, logger: logger, now: time.Now}
}

func (s *SQLiteStore) Get(ctx context.Context, userID string) (models.WatchlistRecord, error) {
	var (
		payload string
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT coins, updated_at FROM watchlists WHERE user_id = ?", userID,
	).Scan(&payload, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EmptyWatchlist(userID), nil
	}
	if err != nil {
		s.logger.Error("failed to get watchlist", slog.String("user_id", userID), slog.Any("error", err))
		return models.WatchlistRecord{}, apperr.Storage("watchlist get", err)
	}

	var coins models.CoinSet
	if err := json.Unmarshal([]byte(payload), &coins); err != nil {
		return models.WatchlistRecord{}, apperr.Storage("watchlist decode", err)
	}

	return models.WatchlistRecord{
		UserID:    userID,
		Coins:     coins,
		UpdatedAt: time.UnixMilli(updated).UTC(),
	}, nil
}

func (s *SQLiteStore) Set(ctx context.Context, userID string, coins models.CoinSet) (models.WatchlistRecord, error) {
	payload, err := json.Marshal(coins)
	if err != nil {
		return models.WatchlistRecord{}, apperr.Storage("watchlist encode", err)
	}
	now := s.now().UTC()

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO watchlists (user_id, coins, updated_at) VALUES (?, ?, ?) ON CONFLICT(user_id) DO UPDATE SET coins=excluded.coins, updated_at=excluded.updated_at",
		userID, string(payload), now.UnixMilli(),
	)
	if err != nil {
		s.logger.Error("failed to set watchlist", slog.String("user_id", userID), slog.Any("error", err))
		return models.WatchlistRecord{}, apperr.Storage("watchlist set", err)
	}

	return models.WatchlistRecord{
		UserID:    userID,
		Coins:     coins.Clone(),
		UpdatedAt: time.UnixMilli(now.UnixMilli()).UTC(),
	}, nil
}
