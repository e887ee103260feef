package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"inkcircle/internal/handler"
	"inkcircle/internal/httputil"
	appmw "inkcircle/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler     *handler.AuthHandler
	PostHandler     *handler.PostHandler
	ComposerHandler *handler.ComposerHandler
	CommentHandler  *handler.CommentHandler
	Authenticator   *appmw.Authenticator
	AuthLimiter     *appmw.RateLimiter // nil disables rate limiting on /auth
	AllowedOrigins  []string           // empty disables CORS handling
}

// NewRouter creates the chi router with every route group.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true, // the access token cookie
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		if cfg.AuthLimiter != nil {
			r.Use(cfg.AuthLimiter.Limit)
		}
		r.Post("/signup", cfg.AuthHandler.Signup)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
		r.Post("/logout", cfg.AuthHandler.Logout)
		r.With(cfg.Authenticator.RequireAuth).Post("/logout-all", cfg.AuthHandler.LogoutAll)
	})

	r.Get("/tags/{tag}/style", handler.TagStyle)

	// Reads and toggles run for anonymous viewers too; the services answer
	// them with a sign-in notice.
	r.Group(func(r chi.Router) {
		r.Use(cfg.Authenticator.OptionalAuth)

		r.Get("/posts", cfg.PostHandler.Feed)
		r.Get("/posts/{id}", cfg.PostHandler.GetByID)
		r.Post("/posts/{id}/like", cfg.PostHandler.Like)
		r.Post("/posts/{id}/bookmark", cfg.PostHandler.Bookmark)

		r.Get("/posts/{id}/comments", cfg.CommentHandler.List)
		r.Post("/posts/{id}/comments", cfg.CommentHandler.Create)
		r.Post("/posts/{id}/comments/{commentId}/like", cfg.CommentHandler.ToggleLike)
	})

	r.Group(func(r chi.Router) {
		r.Use(cfg.Authenticator.RequireAuth)

		r.Get("/me", cfg.AuthHandler.Me)
		r.Get("/dashboard", cfg.PostHandler.Dashboard)
		r.Delete("/posts/{id}", cfg.PostHandler.Delete)

		r.Route("/drafts", func(r chi.Router) {
			r.Post("/", cfg.ComposerHandler.Open)
			r.Get("/{id}", cfg.ComposerHandler.Get)
			r.Patch("/{id}", cfg.ComposerHandler.Update)
			r.Post("/{id}/commands", cfg.ComposerHandler.Command)
			r.Get("/{id}/tags/suggest", cfg.ComposerHandler.SuggestTags)
			r.Post("/{id}/save", cfg.ComposerHandler.Save)
			r.Post("/{id}/publish", cfg.ComposerHandler.Publish)
		})
	})

	return r
}
