package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"inkcircle/internal/auth"
	"inkcircle/internal/composer"
	"inkcircle/internal/httputil"
	"inkcircle/internal/model"
	"inkcircle/internal/service"
)

// ComposerHandler exposes the server-side authoring sessions.
// Every response carries the current snapshot plus any notices and
// redirect the operation produced.
type ComposerHandler struct {
	postService *service.PostService
}

func NewComposerHandler(postService *service.PostService) *ComposerHandler {
	return &ComposerHandler{postService: postService}
}

// Open handles POST /drafts
func (h *ComposerHandler) Open(w http.ResponseWriter, r *http.Request) {
	sess, err := h.postService.OpenDraft(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err, "Failed to open draft", nil)
		return
	}
	writeComposer(w, http.StatusCreated, sess, nil)
}

// Get handles GET /drafts/{id}
func (h *ComposerHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.postService.Session(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to open draft", nil)
		return
	}
	writeComposer(w, http.StatusOK, sess, nil)
}

// Update handles PATCH /drafts/{id}
func (h *ComposerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateDraftRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	sess, rejected, err := h.postService.UpdateDraft(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err, "Failed to update draft", nil)
		return
	}
	writeComposer(w, http.StatusOK, sess, rejected)
}

// Command handles POST /drafts/{id}/commands
func (h *ComposerHandler) Command(w http.ResponseWriter, r *http.Request) {
	var req model.CommandRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	sess, err := h.postService.ApplyCommand(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err, "Failed to apply command", nil)
		return
	}
	writeComposer(w, http.StatusOK, sess, nil)
}

// SuggestTags handles GET /drafts/{id}/tags/suggest?q=
func (h *ComposerHandler) SuggestTags(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.postService.SuggestTags(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err, "Failed to suggest tags", nil)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]string{"suggestions": suggestions})
}

// Save handles POST /drafts/{id}/save
func (h *ComposerHandler) Save(w http.ResponseWriter, r *http.Request) {
	sess, err := h.postService.SaveDraft(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	h.finish(w, sess, err, "Failed to save draft")
}

// Publish handles POST /drafts/{id}/publish
func (h *ComposerHandler) Publish(w http.ResponseWriter, r *http.Request) {
	sess, err := h.postService.Publish(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	h.finish(w, sess, err, "Failed to publish post")
}

func (h *ComposerHandler) finish(w http.ResponseWriter, sess *composer.Session, err error, fallback string) {
	if err != nil {
		var notices []model.Notice
		if sess != nil {
			notices, _ = sess.Drain()
		}
		writeServiceError(w, err, fallback, notices)
		return
	}
	writeComposer(w, http.StatusOK, sess, nil)
}

func writeComposer(w http.ResponseWriter, status int, sess *composer.Session, rejected []string) {
	if sess == nil {
		writeServiceError(w, errors.New("no composer session"), "Failed to open draft", nil)
		return
	}
	notices, redirect := sess.Drain()
	resp := model.ComposerResponse{
		Post:         sess.Snapshot(),
		Saving:       sess.Saving(),
		RejectedTags: rejected,
		Notices:      notices,
		Redirect:     redirect,
	}
	if sel, ok := sess.Selection(); ok {
		resp.Selection = &model.SelectionRequest{
			Start: model.Position{Block: sel.Start.Block, Offset: sel.Start.Offset},
			End:   model.Position{Block: sel.End.Block, Offset: sel.End.Offset},
		}
	}
	httputil.WriteJSON(w, status, resp)
}
