package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"inkcircle/internal/auth"
	"inkcircle/internal/httputil"
	"inkcircle/internal/model"
	"inkcircle/internal/notify"
	"inkcircle/internal/service"
)

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

type commentResponse struct {
	Comment model.Comment  `json:"comment"`
	Notices []model.Notice `json:"notices,omitempty"`
}

// List handles GET /posts/{id}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	resp, err := h.commentService.List(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to get comments", nil)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Create handles POST /posts/{id}/comments. Anonymous requests reach the
// service so the sign-in notice is returned with the 401.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCommentRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	notes := notify.NewRecorder()
	comment, err := h.commentService.Create(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), req.Content, notes)
	if err != nil {
		writeServiceError(w, err, "Failed to create comment", notes.Notices())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, commentResponse{Comment: comment, Notices: notes.Notices()})
}

// ToggleLike handles POST /posts/{id}/comments/{commentId}/like
func (h *CommentHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	notes := notify.NewRecorder()
	comment, err := h.commentService.ToggleLike(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "commentId"), notes)
	if err != nil {
		writeServiceError(w, err, "Failed to update like", notes.Notices())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, commentResponse{Comment: comment, Notices: notes.Notices()})
}
