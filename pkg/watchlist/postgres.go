package watchlist

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
	"github.com/B0TMirage/cryptopulse/pkg/models"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore keeps one row per user with the coins in a TEXT[] column.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (models.WatchlistRecord, error) {
	var (
		coins   []string
		updated time.Time
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT coins, updated_at FROM watchlists WHERE user_id=$1", userID,
	).Scan(pq.Array(&coins), &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EmptyWatchlist(userID), nil
	}
	if err != nil {
		s.logger.Error("failed to get watchlist", slog.String("user_id", userID), slog.Any("error", err))
		return models.WatchlistRecord{}, apperr.Storage("watchlist get", err)
	}

	return models.WatchlistRecord{
		UserID:    userID,
		Coins:     models.NewCoinSet(coins...),
		UpdatedAt: updated.UTC(),
	}, nil
}

func (s *PostgresStore) Set(ctx context.Context, userID string, coins models.CoinSet) (models.WatchlistRecord, error) {
	query := `
		INSERT INTO watchlists (user_id, coins, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET coins = EXCLUDED.coins, updated_at = EXCLUDED.updated_at
		RETURNING coins, updated_at
	`

	var (
		stored  []string
		updated time.Time
	)
	err := s.db.QueryRowContext(ctx, query, userID, pq.Array(coins.Slice())).Scan(pq.Array(&stored), &updated)
	if err != nil {
		s.logger.Error("failed to set watchlist", slog.String("user_id", userID), slog.Any("error", err))
		return models.WatchlistRecord{}, apperr.Storage("watchlist set", err)
	}

	return models.WatchlistRecord{
		UserID:    userID,
		Coins:     models.NewCoinSet(stored...),
		UpdatedAt: updated.UTC(),
	}, nil
}
