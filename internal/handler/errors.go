package handler

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"inkcircle/internal/httputil"
	"inkcircle/internal/model"
)

// writeServiceError maps domain errors onto the error envelope. Anything
// unrecognized is logged and reported as a 500 with fallback as message.
func writeServiceError(w http.ResponseWriter, err error, fallback string, notices []model.Notice) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.WriteValidationError(w, verr, notices)
	case errors.Is(err, model.ErrAuthRequired):
		httputil.WriteErrorWithNotices(w, http.StatusUnauthorized, httputil.ErrCodeUnauthorized, "Authentication required", notices)
	case errors.Is(err, model.ErrNotPostOwner):
		httputil.WriteErrorWithNotices(w, http.StatusForbidden, httputil.ErrCodeForbidden, "You can only change your own posts", notices)
	case errors.Is(err, model.ErrPostNotFound):
		httputil.WriteErrorWithNotices(w, http.StatusNotFound, httputil.ErrCodeNotFound, "Post not found", notices)
	case errors.Is(err, model.ErrCommentNotFound):
		httputil.WriteErrorWithNotices(w, http.StatusNotFound, httputil.ErrCodeNotFound, "Comment not found", notices)
	case errors.Is(err, model.ErrAlreadyPublished):
		httputil.WriteErrorWithNotices(w, http.StatusConflict, httputil.ErrCodeConflict, "Post is already published", notices)
	case errors.Is(err, model.ErrSaveInProgress):
		httputil.WriteErrorWithNotices(w, http.StatusConflict, model.CodeSaveInProgress, "A save is already in progress", notices)
	case errors.Is(err, model.ErrSubmitting):
		httputil.WriteErrorWithNotices(w, http.StatusConflict, model.CodeSaveInProgress, "A comment is already being submitted", notices)
	case errors.Is(err, model.ErrContentRequired),
		errors.Is(err, model.ErrContentTooLong),
		errors.Is(err, model.ErrUnknownCommand),
		errors.Is(err, model.ErrInvalidReactionKey),
		errors.Is(err, model.ErrInvalidCoverImage):
		httputil.WriteErrorWithNotices(w, http.StatusBadRequest, httputil.ErrCodeBadRequest, err.Error(), notices)
	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WriteErrorWithNotices(w, http.StatusBadRequest, model.CodeFileTooLarge, "Cover image exceeds 5MB limit", notices)
	case errors.Is(err, model.ErrInvalidImageType):
		httputil.WriteErrorWithNotices(w, http.StatusBadRequest, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp", notices)
	default:
		log.Errorf("[Handler] %s: %v", fallback, err)
		// a notice means persistence failed and the user was told
		if len(notices) > 0 {
			httputil.WriteErrorWithNotices(w, http.StatusBadGateway, httputil.ErrCodeBadGateway, fallback, notices)
			return
		}
		httputil.WriteInternalError(w, fallback)
	}
}
