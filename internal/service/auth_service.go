package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"colab-review-server/internal/domain"
	"colab-review-server/internal/repository"
	"colab-review-server/pkg/hash"
	"colab-review-server/pkg/jwt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RefreshSessionStore remembers issued refresh tokens so they can be revoked.
type RefreshSessionStore interface {
	Save(ctx context.Context, token, userID string, expiresAt time.Time) error
	Lookup(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

type AuthService struct {
	userRepo          repository.UserRepository
	profileRepo       repository.ProfileRepository
	sessions          RefreshSessionStore
	jwtSecret         string
	jwtExpiration     time.Duration
	refreshExpiration time.Duration
	logger            *zap.Logger
}

// NewAuthService wires the auth flows. sessions may be nil, in which case
// refresh tokens are trusted until they expire.
func NewAuthService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	sessions RefreshSessionStore,
	jwtSecret string,
	jwtExp, refreshExp time.Duration,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:          userRepo,
		profileRepo:       profileRepo,
		sessions:          sessions,
		jwtSecret:         jwtSecret,
		jwtExpiration:     jwtExp,
		refreshExpiration: refreshExp,
		logger:            logger,
	}
}

// SignUp creates the identity and its profile. A failed profile insert is
// logged only; the organization resolver recreates it from metadata later.
func (s *AuthService) SignUp(ctx context.Context, req *domain.SignUpRequest) (*domain.User, error) {
	orgID := strings.TrimSpace(req.OrgID)
	if orgID == "" {
		return nil, ErrOrgRequired
	}

	emailExists, err := s.userRepo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if emailExists {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := hash.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:       uuid.New().String(),
		Email:    req.Email,
		Password: hashedPassword,
		Metadata: domain.UserMetadata{
			FullName: req.FullName,
			OrgID:    orgID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	profile := &domain.Profile{ID: user.ID, FullName: req.FullName, OrgID: orgID}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		s.logger.Error("failed to create profile at sign-up",
			zap.String("user_id", user.ID), zap.String("org_id", orgID), zap.Error(err))
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID), zap.String("org_id", orgID))
	return user.Public(), nil
}

func (s *AuthService) SignIn(ctx context.Context, req *domain.SignInRequest) (*domain.SignInResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := hash.Compare(user.Password, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := jwt.GenerateToken(user.ID, s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := jwt.GenerateRefreshToken(user.ID, s.refreshExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if s.sessions != nil {
		if err := s.sessions.Save(ctx, refreshToken, user.ID, time.Now().Add(s.refreshExpiration)); err != nil {
			return nil, fmt.Errorf("failed to store refresh session: %w", err)
		}
	}

	s.ensureProfile(ctx, user)

	return &domain.SignInResponse{
		User:         user.Public(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtExpiration.Seconds()),
	}, nil
}

// ensureProfile backfills a missing profile for identities whose metadata names
// an organization. Failures never block sign-in.
func (s *AuthService) ensureProfile(ctx context.Context, user *domain.User) {
	if user.Metadata.OrgID == "" {
		return
	}

	_, err := s.profileRepo.FindByID(ctx, user.ID)
	if err == nil {
		return
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("profile check failed on sign-in", zap.String("user_id", user.ID), zap.Error(err))
		return
	}

	profile := &domain.Profile{ID: user.ID, FullName: user.Metadata.FullName, OrgID: user.Metadata.OrgID}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		s.logger.Error("failed to create profile on sign-in", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func (s *AuthService) Refresh(ctx context.Context, req *domain.RefreshTokenRequest) (*domain.TokenResponse, error) {
	claims, err := jwt.ValidateRefreshToken(req.RefreshToken, s.jwtSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if s.sessions != nil {
		userID, err := s.sessions.Lookup(ctx, req.RefreshToken)
		if err != nil || userID != claims.UserID {
			return nil, ErrInvalidToken
		}
	}

	accessToken, err := jwt.GenerateToken(claims.UserID, s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtExpiration.Seconds()),
	}, nil
}

// SignOut revokes the refresh session and returns the user it belonged to.
func (s *AuthService) SignOut(ctx context.Context, refreshToken string) (string, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.jwtSecret)
	if err != nil {
		return "", ErrInvalidToken
	}

	if s.sessions != nil {
		if err := s.sessions.Revoke(ctx, refreshToken); err != nil {
			return "", fmt.Errorf("failed to revoke session: %w", err)
		}
	}

	s.logger.Info("user signed out", zap.String("user_id", claims.UserID))
	return claims.UserID, nil
}

func (s *AuthService) ValidateToken(token string) (*jwt.Claims, error) {
	claims, err := jwt.ValidateAccessToken(token, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// CurrentSession resolves the identity behind an access token.
func (s *AuthService) CurrentSession(ctx context.Context, accessToken string) (*domain.Session, error) {
	claims, err := s.ValidateToken(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}

	return &domain.Session{User: user.Public(), AccessToken: accessToken}, nil
}
