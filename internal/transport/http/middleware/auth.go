package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"

	"inkcircle/internal/auth"
	"inkcircle/internal/httputil"
	"inkcircle/internal/model"
)

// AccessTokenCookie is read when no Authorization header is sent.
const AccessTokenCookie = "access_token"

var (
	errMissingToken = errors.New("missing token")
	errTokenExpired = errors.New("token expired")
	errTokenInvalid = errors.New("token invalid")
)

// UserLookup resolves the user named by a token.
type UserLookup interface {
	GetSummary(ctx context.Context, id string) (*model.UserSummary, error)
}

// Authenticator turns access tokens into an auth.Context on the request.
type Authenticator struct {
	secret []byte
	users  UserLookup
}

func NewAuthenticator(jwtSecret string, users UserLookup) *Authenticator {
	return &Authenticator{secret: []byte(jwtSecret), users: users}
}

// RequireAuth rejects requests without a valid token.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer, err := a.authenticate(r)
		if err != nil {
			switch {
			case errors.Is(err, errMissingToken):
				httputil.WriteUnauthorized(w, "Missing authentication token")
			case errors.Is(err, errTokenExpired):
				httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Access token has expired")
			case errors.Is(err, errTokenInvalid):
				httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid authentication token")
			default:
				log.Errorf("[Auth] Resolve viewer FAILED: %v", err)
				httputil.WriteInternalError(w, "Failed to authenticate")
			}
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithContext(r.Context(), viewer)))
	})
}

// OptionalAuth attaches the viewer when a valid token is present and
// continues anonymously otherwise.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer, err := a.authenticate(r)
		if err != nil {
			viewer = auth.Anonymous()
		}
		next.ServeHTTP(w, r.WithContext(auth.WithContext(r.Context(), viewer)))
	})
}

func (a *Authenticator) authenticate(r *http.Request) (auth.Context, error) {
	userID, err := a.parseToken(bearerToken(r))
	if err != nil {
		return auth.Anonymous(), err
	}

	user, err := a.users.GetSummary(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return auth.Anonymous(), errTokenInvalid
		}
		return auth.Anonymous(), err
	}
	return auth.Authenticated(*user), nil
}

func (a *Authenticator) parseToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", errMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errTokenExpired
		}
		return "", errTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errTokenInvalid
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", errTokenInvalid
	}
	return userID, nil
}

// bearerToken checks the Authorization header first, then the cookie.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}
