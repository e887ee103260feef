package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"inkcircle/internal/config"
	"inkcircle/internal/model"
)

func newTestAuthService(repo *mockRefreshTokenRepository) *AuthService {
	return NewAuthService(repo, &config.Config{
		JWTSecret:          "test-secret",
		AccessTokenMaxAge:  900,
		RefreshTokenMaxAge: 3600,
	})
}

func TestAuthService_GenerateTokenPair(t *testing.T) {
	repo := newMockRefreshTokenRepository()
	svc := newTestAuthService(repo)

	pair, tokenID, err := svc.GenerateTokenPair(context.Background(), "u1", "test-agent")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if pair.ExpiresIn != 900 || tokenID == "" {
		t.Errorf("pair = %+v id=%q", pair, tokenID)
	}

	stored, err := repo.FindByTokenHash(context.Background(), hashToken(pair.RefreshToken))
	if err != nil {
		t.Fatalf("refresh token not stored: %v", err)
	}
	if stored.TokenHash == pair.RefreshToken {
		t.Error("raw refresh token must not be stored")
	}
	if stored.UserAgent == nil || *stored.UserAgent != "test-agent" {
		t.Errorf("user agent = %v", stored.UserAgent)
	}

	token, err := jwt.Parse(pair.AccessToken, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	if err != nil || !token.Valid {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims := token.Claims.(jwt.MapClaims); claims["user_id"] != "u1" {
		t.Errorf("user_id claim = %v, want u1", claims["user_id"])
	}
}

func TestAuthService_RefreshTokens_Rotates(t *testing.T) {
	repo := newMockRefreshTokenRepository()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	first, firstID, _ := svc.GenerateTokenPair(ctx, "u1", "")

	second, userID, err := svc.RefreshTokens(ctx, first.RefreshToken, "")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if userID != "u1" || second.RefreshToken == first.RefreshToken {
		t.Errorf("refresh did not rotate: user=%q", userID)
	}

	old, _ := repo.FindByTokenHash(ctx, hashToken(first.RefreshToken))
	if !old.Revoked() || old.ReplacedBy == nil {
		t.Errorf("old token should be revoked and linked: %+v (id %s)", old, firstID)
	}
}

func TestAuthService_RefreshTokens_ReuseRevokesFamily(t *testing.T) {
	repo := newMockRefreshTokenRepository()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	first, _, _ := svc.GenerateTokenPair(ctx, "u1", "")
	if _, _, err := svc.RefreshTokens(ctx, first.RefreshToken, ""); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}

	_, _, err := svc.RefreshTokens(ctx, first.RefreshToken, "")

	if !errors.Is(err, model.ErrRefreshTokenReused) {
		t.Fatalf("expected ErrRefreshTokenReused, got: %v", err)
	}
	if len(repo.all) != 1 || repo.all[0] != "u1" {
		t.Errorf("RevokeAllForUser calls = %v, want [u1]", repo.all)
	}
}

func TestAuthService_RefreshTokens_Errors(t *testing.T) {
	repo := newMockRefreshTokenRepository()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	if _, _, err := svc.RefreshTokens(ctx, "unknown", ""); !errors.Is(err, model.ErrRefreshTokenNotFound) {
		t.Errorf("unknown token: got %v", err)
	}

	pair, _, _ := svc.GenerateTokenPair(ctx, "u1", "")
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, _, err := svc.RefreshTokens(ctx, pair.RefreshToken, ""); !errors.Is(err, model.ErrRefreshTokenExpired) {
		t.Errorf("expired token: got %v", err)
	}
}

func TestAuthService_RevokeRefreshToken(t *testing.T) {
	repo := newMockRefreshTokenRepository()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	pair, id, _ := svc.GenerateTokenPair(ctx, "u1", "")
	if err := svc.RevokeRefreshToken(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(repo.revoked) != 1 || repo.revoked[0] != id {
		t.Errorf("revoked = %v, want [%s]", repo.revoked, id)
	}

	// logging out twice or with garbage is harmless
	if err := svc.RevokeRefreshToken(ctx, pair.RefreshToken); err != nil {
		t.Errorf("second revoke: %v", err)
	}
	if err := svc.RevokeRefreshToken(ctx, "garbage"); err != nil {
		t.Errorf("unknown revoke: %v", err)
	}
	if len(repo.revoked) != 1 {
		t.Errorf("revoked = %v, want a single call", repo.revoked)
	}
}
