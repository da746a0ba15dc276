package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Mark-AImagineers/NoteKo/internal/auth"
	"github.com/Mark-AImagineers/NoteKo/internal/domain"
	"github.com/Mark-AImagineers/NoteKo/internal/password"
	"github.com/Mark-AImagineers/NoteKo/internal/repository"
	apperrors "github.com/Mark-AImagineers/NoteKo/pkg/errors"
)

var authOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "auth_operations_total",
	Help: "Auth operations by operation and outcome.",
}, []string{"operation", "outcome"})

// UserEventPublisher announces account lifecycle events.
type UserEventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
}

// AuthService implements registration, login, token refresh and identity
// lookup.
type AuthService struct {
	users  repository.UserRepository
	hasher *password.Hasher
	tokens *auth.TokenService
	events UserEventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewAuthService creates a new auth service. events may be nil, in which
// case no events are published.
func NewAuthService(
	users repository.UserRepository,
	hasher *password.Hasher,
	tokens *auth.TokenService,
	events UserEventPublisher,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email    string
	Password string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// Register creates an active account. The email is checked before the
// password policy so an existing address is reported as a duplicate whatever
// the password.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (_ *domain.User, err error) {
	defer func() { record("register", err) }()

	_, err = s.users.GetByEmail(ctx, input.Email)
	switch {
	case err == nil:
		return nil, toAppError(domain.ErrDuplicateEmail)
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, apperrors.Internal(fmt.Errorf("lookup user by email: %w", err))
	}

	if ok, reason := password.CheckStrength(input.Password); !ok {
		return nil, apperrors.New("WEAK_PASSWORD", reason, http.StatusBadRequest, domain.ErrWeakPassword)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := s.now().UTC()
	user := &domain.User{
		Email:        input.Email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Another registration may have won the race since the pre-check.
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, toAppError(domain.ErrDuplicateEmail)
		}
		return nil, apperrors.Internal(fmt.Errorf("create user: %w", err))
	}

	s.logger.InfoContext(ctx, "user registered", slog.Int64("user_id", user.ID))

	if s.events != nil {
		if err := s.events.PublishUserRegistered(ctx, user); err != nil {
			s.logger.WarnContext(ctx, "failed to publish user.registered event",
				slog.Int64("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return user, nil
}

// Login checks credentials and issues an access/refresh pair. Unknown email,
// wrong password and inactive account are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (_ *domain.User, _ *domain.TokenPair, err error) {
	defer func() { record("login", err) }()

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.VerifyDummy(input.Password)
			return nil, nil, toAppError(domain.ErrInvalidCredentials)
		}
		return nil, nil, apperrors.Internal(fmt.Errorf("lookup user by email: %w", err))
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		s.logger.WarnContext(ctx, "login failed: wrong password", slog.Int64("user_id", user.ID))
		return nil, nil, toAppError(domain.ErrInvalidCredentials)
	}
	if !user.IsActive {
		s.logger.WarnContext(ctx, "login failed: account inactive", slog.Int64("user_id", user.ID))
		return nil, nil, toAppError(domain.ErrInvalidCredentials)
	}

	pair, err := s.tokens.IssuePair(strconv.FormatInt(user.ID, 10))
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.Int64("user_id", user.ID))
	return user, pair, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated, so the returned pair has no refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (_ *domain.TokenPair, err error) {
	defer func() { record("refresh", err) }()

	payload, err := s.tokens.Verify(refreshToken, domain.TokenRefresh)
	if err != nil {
		return nil, toAppError(err)
	}

	access, err := s.tokens.IssueAccess(payload.Subject)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.logger.DebugContext(ctx, "access token refreshed", slog.String("user_id", payload.Subject))
	return &domain.TokenPair{AccessToken: access}, nil
}

// Whoami resolves an access token to the account it was issued for.
func (s *AuthService) Whoami(ctx context.Context, accessToken string) (_ *domain.User, err error) {
	defer func() { record("whoami", err) }()

	payload, err := s.tokens.Verify(accessToken, domain.TokenAccess)
	if err != nil {
		return nil, toAppError(err)
	}

	id, err := strconv.ParseInt(payload.Subject, 10, 64)
	if err != nil {
		return nil, toAppError(domain.ErrTokenMalformed)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, toAppError(domain.ErrUserNotFound)
		}
		return nil, apperrors.Internal(fmt.Errorf("lookup user by id: %w", err))
	}
	return user, nil
}

// toAppError maps a domain failure to its public code, message and status.
func toAppError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, domain.ErrDuplicateEmail):
		return apperrors.New("DUPLICATE_EMAIL", "email already registered", http.StatusConflict, err)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apperrors.New("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, err)
	case errors.Is(err, domain.ErrTokenExpired):
		return apperrors.New("TOKEN_EXPIRED", "token has expired", http.StatusUnauthorized, err)
	case errors.Is(err, domain.ErrWrongTokenType):
		return apperrors.New("WRONG_TOKEN_TYPE", "invalid token type", http.StatusUnauthorized, err)
	case errors.Is(err, domain.ErrTokenMalformed), errors.Is(err, domain.ErrTokenInvalid):
		return apperrors.New("INVALID_TOKEN", "could not validate credentials", http.StatusUnauthorized, err)
	case errors.Is(err, domain.ErrUserNotFound):
		return apperrors.New("NOT_FOUND", "user not found", http.StatusNotFound, err)
	default:
		return apperrors.Internal(err)
	}
}

func record(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			outcome = strings.ToLower(appErr.Code)
		}
	}
	authOperations.WithLabelValues(operation, outcome).Inc()
}
