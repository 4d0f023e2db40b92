// Package services contains server-side business logic: signature issuance
// and revocation, public verification, admin aggregation and the local
// identity flow (registration, login, token refresh).
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/mitrasign/internal/common"
	"github.com/dmitrijs2005/mitrasign/internal/cryptox"
	"github.com/dmitrijs2005/mitrasign/internal/dbx"
	"github.com/dmitrijs2005/mitrasign/internal/logging"
	"github.com/dmitrijs2005/mitrasign/internal/server/access"
	"github.com/dmitrijs2005/mitrasign/internal/server/auth"
	"github.com/dmitrijs2005/mitrasign/internal/server/config"
	"github.com/dmitrijs2005/mitrasign/internal/server/models"
	"github.com/dmitrijs2005/mitrasign/internal/server/repositories/repomanager"
)

const minPasswordLength = 6

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput is the self-service sign-up form.
type RegisterInput struct {
	Email        string
	Password     string
	FullName     string
	UnitName     string
	DefaultClass string
}

// UserService provides authentication-related operations:
// - Register: create signer profiles
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		logger:                       logger.With("module", "users"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	profile, err := s.repomanager.Profiles(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		if n, err := repoTx.DeleteExpired(ctx, profile.ID, time.Now()); err != nil {
			return fmt.Errorf("error purging refresh tokens: %w", err)
		} else if n > 0 {
			s.logger.Debug(ctx, "purged expired refresh tokens", "user_id", profile.ID, "count", n)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, callerOf(profile), tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Register creates a signer profile. New accounts always get the signer
// role; admins are promoted out of band.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, minPasswordLength)
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, fmt.Errorf("%w: full name is required", common.ErrorValidation)
	}

	salt := cryptox.NewSalt()
	profile := &models.Profile{
		Email:        email,
		PasswordHash: cryptox.HashPassword(in.Password, salt),
		Salt:         salt,
		FullName:     strings.TrimSpace(in.FullName),
		UnitName:     strings.TrimSpace(in.UnitName),
		DefaultClass: strings.TrimSpace(in.DefaultClass),
		Role:         access.RoleSigner,
	}
	if err := s.repomanager.Profiles(s.db).Create(ctx, profile); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "signer registered", "id", profile.ID)
	return profile, nil
}

// Login verifies the password and, on success, returns a new TokenPair.
// Unknown emails and wrong passwords are indistinguishable.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	repo := s.repomanager.Profiles(s.db)
	profile, err := repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	if !cryptox.CheckPassword(profile.PasswordHash, profile.Salt, password) {
		return nil, common.ErrorUnauthorized
	}
	return s.generateTokenPair(ctx, callerOf(profile), s.db)
}

// Profile returns the caller's own profile.
func (s *UserService) Profile(ctx context.Context, caller access.Caller) (*models.Profile, error) {
	if caller.Anonymous() {
		return nil, common.ErrorUnauthorized
	}
	return s.repomanager.Profiles(s.db).GetByID(ctx, caller.ID)
}

// --- helpers below ---

func callerOf(p *models.Profile) access.Caller {
	return access.Caller{ID: p.ID, Role: p.Role}
}

func (s *UserService) generateAccessToken(caller access.Caller) (string, error) {
	return auth.GenerateToken(caller, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, caller access.Caller, tx dbx.DBTX) (*TokenPair, error) {
	accessToken, err := s.generateAccessToken(caller)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, caller.ID, refresh, time.Now().Add(s.refreshTokenValidityDuration)); err != nil {
		return nil, fmt.Errorf("error generating token pair: %w", err)
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refresh}, nil
}
