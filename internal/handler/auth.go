package handler

import (
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"inkcircle/internal/auth"
	"inkcircle/internal/config"
	"inkcircle/internal/httputil"
	"inkcircle/internal/model"
	"inkcircle/internal/service"
	"inkcircle/internal/transport/http/middleware"
)

// AuthHandler groups account and token endpoints.
type AuthHandler struct {
	userService *service.UserService
	authService *service.AuthService
	config      *config.Config
}

func NewAuthHandler(userService *service.UserService, authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
		config:      cfg,
	}
}

// Signup handles POST /auth/signup and signs the new user in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.userService.Signup(r.Context(), &req)
	if err != nil {
		var verr *model.ValidationError
		switch {
		case errors.As(err, &verr):
			httputil.WriteValidationError(w, verr, nil)
		case errors.Is(err, model.ErrEmailExists):
			httputil.WriteConflict(w, "Email is already registered")
		default:
			log.Errorf("[AuthHandler] Signup FAILED: email=%s err=%v", req.Email, err)
			httputil.WriteInternalError(w, "Failed to create account")
		}
		return
	}

	h.writeSession(w, r, http.StatusCreated, user)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		var verr *model.ValidationError
		switch {
		case errors.As(err, &verr):
			httputil.WriteValidationError(w, verr, nil)
		case errors.Is(err, model.ErrInvalidCredentials):
			httputil.WriteUnauthorized(w, "Invalid email or password")
		default:
			log.Errorf("[AuthHandler] Login FAILED: err=%v", err)
			httputil.WriteInternalError(w, "Failed to login")
		}
		return
	}

	h.writeSession(w, r, http.StatusOK, user)
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		httputil.WriteBadRequest(w, "Refresh token is required")
		return
	}

	pair, userID, err := h.authService.RefreshTokens(r.Context(), req.RefreshToken, r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRefreshTokenNotFound):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid refresh token")
		case errors.Is(err, model.ErrRefreshTokenExpired):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Refresh token has expired")
		case errors.Is(err, model.ErrRefreshTokenReused):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenReused, "Refresh token reuse detected. Please login again.")
		default:
			log.Errorf("[AuthHandler] Refresh FAILED: err=%v", err)
			httputil.WriteInternalError(w, "Failed to refresh tokens")
		}
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid refresh token")
		return
	}

	h.setAccessCookie(w, r, pair.AccessToken, pair.ExpiresIn)
	httputil.WriteJSON(w, http.StatusOK, model.Session{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// Logout handles POST /auth/logout. Unknown tokens still log out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		httputil.WriteBadRequest(w, "Refresh token is required")
		return
	}

	if err := h.authService.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		log.Errorf("[AuthHandler] Logout FAILED: err=%v", err)
		httputil.WriteInternalError(w, "Failed to logout")
		return
	}

	h.setAccessCookie(w, r, "", -1)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// LogoutAll handles POST /auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	viewer := auth.FromContext(r.Context())
	if !viewer.IsAuthenticated() {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	if err := h.authService.RevokeAllUserTokens(r.Context(), viewer.UserID()); err != nil {
		log.Errorf("[AuthHandler] LogoutAll FAILED: user=%s err=%v", viewer.UserID(), err)
		httputil.WriteInternalError(w, "Failed to logout from all devices")
		return
	}

	h.setAccessCookie(w, r, "", -1)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out from all devices",
	})
}

// Me handles GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	viewer := auth.FromContext(r.Context())
	if !viewer.IsAuthenticated() {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	user, err := h.userService.GetByID(r.Context(), viewer.UserID())
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to get user")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, r *http.Request, status int, user *model.User) {
	pair, _, err := h.authService.GenerateTokenPair(r.Context(), user.ID, r.UserAgent())
	if err != nil {
		log.Errorf("[AuthHandler] GenerateTokenPair FAILED: user=%s err=%v", user.ID, err)
		httputil.WriteInternalError(w, "Failed to generate tokens")
		return
	}

	h.setAccessCookie(w, r, pair.AccessToken, pair.ExpiresIn)
	httputil.WriteJSON(w, status, model.Session{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// setAccessCookie mirrors the access token into a cookie for browsers.
// A negative maxAge clears it.
func (h *AuthHandler) setAccessCookie(w http.ResponseWriter, r *http.Request, token string, maxAge int) {
	cookie := &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		cookie.Expires = time.Now().Add(time.Duration(maxAge) * time.Second)
	}
	http.SetCookie(w, cookie)
}
