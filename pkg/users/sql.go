package users

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
	"github.com/B0TMirage/cryptopulse/pkg/database"
	"github.com/B0TMirage/cryptopulse/pkg/models"
)

var _ Store = (*SQLStore)(nil)

// SQLStore works on both postgres and sqlite. Queries are written with ?
// placeholders and rebound for postgres.
type SQLStore struct {
	db      *sql.DB
	dialect database.Dialect
	logger  *slog.Logger
}

func NewSQLStore(db *sql.DB, dialect database.Dialect, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{db: db, dialect: dialect, logger: logger}
}

func (s *SQLStore) Create(ctx context.Context, u models.User) error {
	var created any = u.CreatedAt
	if s.dialect == database.SQLite {
		created = u.CreatedAt.UnixMilli()
	}

	_, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO users(id, username, email, password, created_at) VALUES(?, ?, ?, ?, ?)"),
		u.ID, u.Username, u.Email, u.PasswordHash, created,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("user with email %s already exists", u.Email)
	}
	if err != nil {
		s.logger.Error("failed to create user", slog.String("email", u.Email), slog.Any("error", err))
		return apperr.Storage("user create", err)
	}
	return nil
}

func (s *SQLStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	row := s.db.QueryRowContext(ctx,
		s.rebind("SELECT id, username, email, password, created_at FROM users WHERE email = ?"), email)

	var err error
	if s.dialect == database.SQLite {
		var millis int64
		err = row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &millis)
		u.CreatedAt = time.UnixMilli(millis).UTC()
	} else {
		err = row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		s.logger.Error("failed to get user", slog.String("email", email), slog.Any("error", err))
		return models.User{}, apperr.Storage("user get", err)
	}
	return u, nil
}

func (s *SQLStore) rebind(query string) string {
	if s.dialect != database.Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
