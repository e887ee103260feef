package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"inkcircle/internal/config"
	"inkcircle/internal/model"
	"inkcircle/internal/repository"
)

// AuthService issues access tokens and rotates refresh tokens with reuse detection.
type AuthService struct {
	refreshTokenRepo repository.RefreshTokenRepository
	config           *config.Config
	now              func() time.Time
}

func NewAuthService(refreshTokenRepo repository.RefreshTokenRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		refreshTokenRepo: refreshTokenRepo,
		config:           cfg,
		now:              time.Now,
	}
}

// TokenPair is a freshly minted access and refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// GenerateTokenPair issues a new access token and persists a refresh token.
func (s *AuthService) GenerateTokenPair(ctx context.Context, userID, userAgent string) (*TokenPair, string, error) {
	accessToken, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshTokenRaw := uuid.NewString()
	refreshToken := &model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: hashToken(refreshTokenRaw),
		ExpiresAt: s.now().Add(time.Duration(s.config.RefreshTokenMaxAge) * time.Second),
	}
	if userAgent != "" {
		refreshToken.UserAgent = &userAgent
	}

	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		return nil, "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenRaw,
		ExpiresIn:    s.config.AccessTokenMaxAge,
	}, refreshToken.ID, nil
}

// RefreshTokens validates the refresh token and rotates it. Presenting a
// revoked token revokes every session of its user.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshTokenRaw, userAgent string) (*TokenPair, string, error) {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		if errors.Is(err, model.ErrRefreshTokenNotFound) {
			return nil, "", model.ErrRefreshTokenNotFound
		}
		return nil, "", err
	}

	if token.Revoked() {
		if err := s.refreshTokenRepo.RevokeAllForUser(ctx, token.UserID); err != nil {
			log.Errorf("[Auth] RevokeTokenFamily FAILED: user=%s err=%v", token.UserID, err)
		} else {
			log.Warnf("[Auth] Refresh token reuse detected: user=%s token=%s", token.UserID, token.ID)
		}
		return nil, "", model.ErrRefreshTokenReused
	}

	if token.ExpiredAt(s.now()) {
		return nil, "", model.ErrRefreshTokenExpired
	}

	pair, newID, err := s.GenerateTokenPair(ctx, token.UserID, userAgent)
	if err != nil {
		return nil, "", err
	}

	if err := s.refreshTokenRepo.Revoke(ctx, token.ID, &newID); err != nil {
		log.Errorf("[Auth] Revoke FAILED: token=%s err=%v", token.ID, err)
	}

	return pair, token.UserID, nil
}

// RevokeRefreshToken logs a single session out. Unknown tokens are not an error.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshTokenRaw string) error {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		if errors.Is(err, model.ErrRefreshTokenNotFound) {
			return nil
		}
		return err
	}
	if token.Revoked() {
		return nil
	}
	return s.refreshTokenRepo.Revoke(ctx, token.ID, nil)
}

func (s *AuthService) RevokeAllUserTokens(ctx context.Context, userID string) error {
	return s.refreshTokenRepo.RevokeAllForUser(ctx, userID)
}

// PurgeExpired drops tokens that expired more than olderThan ago.
func (s *AuthService) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.refreshTokenRepo.DeleteExpired(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	if n > 0 {
		log.Infof("[Auth] PurgeExpired OK: deleted=%d", n)
	}
	return n, nil
}

func (s *AuthService) generateAccessToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(time.Duration(s.config.AccessTokenMaxAge) * time.Second).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
