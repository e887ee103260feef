package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"inkcircle/internal/auth"
	"inkcircle/internal/httputil"
	"inkcircle/internal/model"
	"inkcircle/internal/notify"
	"inkcircle/internal/service"
	"inkcircle/internal/tagstyle"
)

type PostHandler struct {
	postService *service.PostService
}

func NewPostHandler(postService *service.PostService) *PostHandler {
	return &PostHandler{
		postService: postService,
	}
}

// Feed handles GET /posts?category=&limit=
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	resp, err := h.postService.ListPublished(r.Context(), auth.FromContext(r.Context()), r.URL.Query().Get("category"), limit)
	if err != nil {
		writeServiceError(w, err, "Failed to get posts", nil)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// GetByID handles GET /posts/{id}
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.GetPost(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to get post", nil)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /posts/{id}. Deletion is immediate and final.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	notes := notify.NewRecorder()
	err := h.postService.Delete(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), notes)
	if err != nil {
		writeServiceError(w, err, "Failed to delete post", notes.Notices())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": model.MsgPostDeleted,
		"notices": notes.Notices(),
	})
}

// Like handles POST /posts/{id}/like
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, model.ReactionLike)
}

// Bookmark handles POST /posts/{id}/bookmark
func (h *PostHandler) Bookmark(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, model.ReactionBookmark)
}

func (h *PostHandler) toggle(w http.ResponseWriter, r *http.Request, kind model.ReactionKind) {
	notes := notify.NewRecorder()
	resp, err := h.postService.ToggleReaction(r.Context(), auth.FromContext(r.Context()), kind, chi.URLParam(r, "id"), notes)
	if err != nil {
		writeServiceError(w, err, "Failed to update "+string(kind), notes.Notices())
		return
	}
	resp.Notices = notes.Notices()
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Dashboard handles GET /dashboard?tab=published|drafts&q=
func (h *PostHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")
	if tab != "" && tab != service.TabPublished && tab != service.TabDrafts {
		httputil.WriteBadRequest(w, "Invalid tab parameter")
		return
	}

	resp, err := h.postService.Dashboard(r.Context(), auth.FromContext(r.Context()), tab, r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err, "Failed to load dashboard", nil)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// TagStyle handles GET /tags/{tag}/style
func TagStyle(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	bucket := tagstyle.Classify(tag)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"tag":    tag,
		"bucket": string(bucket),
		"class":  bucket.Class(),
	})
}
