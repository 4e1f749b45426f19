package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
	"github.com/B0TMirage/cryptopulse/pkg/jwtutils"
	"github.com/B0TMirage/cryptopulse/pkg/models"
)

const minPasswordLen = 4

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Service struct {
	store    Store
	secret   string
	tokenTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store Store, secret string, tokenTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, secret: secret, tokenTTL: tokenTTL, logger: logger, now: time.Now}
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) (models.AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = normalizeEmail(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.AuthResponse{}, apperr.Validation("all fields required")
	}
	if len(req.Password) < minPasswordLen {
		return models.AuthResponse{}, apperr.Validation("password must be at least %d characters", minPasswordLen)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.AuthResponse{}, apperr.Validation("couldn't process the password: %v", err)
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashed),
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return models.AuthResponse{}, err
	}
	s.logger.Info("user signed up", slog.String("user_id", user.ID))

	return s.issue(user)
}

// Login answers unknown emails and wrong passwords with the same
// validation error.
func (s *Service) Login(ctx context.Context, req LoginRequest) (models.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return models.AuthResponse{}, apperr.Validation("invalid credentials")
	}

	user, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return models.AuthResponse{}, apperr.Validation("invalid credentials")
	}
	if err != nil {
		return models.AuthResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return models.AuthResponse{}, apperr.Validation("invalid credentials")
	}

	return s.issue(user)
}

func (s *Service) issue(user models.User) (models.AuthResponse, error) {
	token, err := jwtutils.CreateToken(user.ID, user.Username, s.secret, s.tokenTTL)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Any("error", err))
		return models.AuthResponse{}, err
	}
	return models.AuthResponse{Token: token, User: user.Public()}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
