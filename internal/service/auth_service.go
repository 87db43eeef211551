package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-store/internal/adapter/storage/postgres"
	"campus-store/internal/adapter/storage/redis"
	"campus-store/internal/core/domain"
	"campus-store/internal/core/ports"
	"campus-store/pkg/apperror"

	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService with opaque Redis-backed
// session tokens. Revoking a token is a Redis delete; expiry rides on the
// key TTL.
type AuthServiceImpl struct {
	userRepo   ports.UserRepository
	walletRepo ports.WalletRepository
	hashSvc    ports.HashService
	sessions   ports.SessionStore
	sessionTTL time.Duration
	log        zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	hashSvc ports.HashService,
	sessions ports.SessionStore,
	sessionTTL time.Duration,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		hashSvc:    hashSvc,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		log:        log,
	}
}

// Register creates a new account and its wallet.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || len(req.Password) < 8 {
		return nil, apperror.Validation("username is required and password must be at least 8 characters")
	}

	role := req.Role
	if role == "" {
		role = domain.RoleConsumer
	}
	if !role.Valid() {
		return nil, apperror.Validation("unknown role")
	}
	if role == domain.RoleMerchant && strings.TrimSpace(req.StoreName) == "" {
		return nil, apperror.Validation("merchant accounts require a store name")
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		StoreName:    strings.TrimSpace(req.StoreName),
		Headline:     strings.TrimSpace(req.Headline),
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, postgres.ErrDuplicateUsername) {
			return nil, apperror.ErrUsernameExists()
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create user: %w", err))
	}

	// The wallet also materializes lazily on first use; creating it here just
	// makes the overview endpoint work right after registration.
	if _, err := s.walletRepo.Ensure(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("wallet creation deferred to first use")
	}

	s.log.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("account registered")
	return user, nil
}

// Login verifies credentials and issues an opaque session token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.ErrDatabaseError(fmt.Errorf("lookup user: %w", err))
	}
	if user == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	ok, err := s.hashSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}
	if !user.IsActive {
		return "", time.Time{}, apperror.ErrAccountDisabled()
	}

	token, err := redis.NewSessionToken()
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	expiresAt := time.Now().UTC().Add(s.sessionTTL)
	session := &domain.Session{
		Token:     token,
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: expiresAt,
	}
	if err := s.sessions.Save(ctx, session, s.sessionTTL); err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("save session: %w", err))
	}

	s.log.Info().Int64("user_id", user.ID).Msg("session issued")
	return token, expiresAt, nil
}

// Logout revokes the session token. Unknown tokens revoke silently.
func (s *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return apperror.InternalError(fmt.Errorf("delete session: %w", err))
	}
	return nil
}

// Resolve maps a session token back to its active user.
func (s *AuthServiceImpl) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, apperror.ErrInvalidToken()
	}

	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get session: %w", err))
	}
	if session == nil {
		return nil, apperror.ErrInvalidToken()
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lookup session user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrInvalidToken()
	}
	if !user.IsActive {
		return nil, apperror.ErrAccountDisabled()
	}
	return user, nil
}
