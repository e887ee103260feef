package comments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"inkcircle/internal/model"
	"inkcircle/internal/notify"
)

// Persister stores comment changes. Implementations may be slow.
type Persister interface {
	CreateComment(ctx context.Context, c model.Comment) error
	SetCommentLike(ctx context.Context, commentID, userID string, liked bool) error
}

// Section is the comment area under one post: an input box, the list and
// the toasts that go with them.
type Section struct {
	mu         sync.Mutex
	store      *Store
	input      string
	submitting atomic.Bool

	persist Persister
	notes   notify.Sink
}

// NewSection wraps store. A nil persister keeps changes in memory only.
func NewSection(store *Store, persist Persister, notes notify.Sink) *Section {
	if notes == nil {
		notes = notify.Discard
	}
	return &Section{store: store, persist: persist, notes: notes}
}

// SetInput replaces the pending comment text.
func (s *Section) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

func (s *Section) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Submitting reports whether a submit is in flight.
func (s *Section) Submitting() bool { return s.submitting.Load() }

// Submit posts the pending input as author. A nil author is anonymous.
func (s *Section) Submit(ctx context.Context, author *model.UserSummary) (model.Comment, error) {
	if !s.submitting.CompareAndSwap(false, true) {
		return model.Comment{}, model.ErrSubmitting
	}
	defer s.submitting.Store(false)

	s.mu.Lock()
	submitted := s.input
	c, err := s.store.Add(submitted, author)
	s.mu.Unlock()
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAuthRequired):
			s.notes.Error(model.MsgSignInToComment)
		case errors.Is(err, model.ErrContentRequired):
			s.notes.Error(model.MsgCommentEmpty)
		default:
			s.notes.Error(err.Error())
		}
		return model.Comment{}, err
	}

	if s.persist != nil {
		if err := s.persist.CreateComment(ctx, c); err != nil {
			s.mu.Lock()
			s.store.Remove(c.ID)
			s.mu.Unlock()
			log.Warnf("[Comments] create on post %s FAILED: %v", c.PostID, err)
			s.notes.Error(model.MsgCommentFailed)
			return model.Comment{}, fmt.Errorf("create comment: %w", err)
		}
	}

	// Text typed while the submit was in flight is kept.
	s.mu.Lock()
	if s.input == submitted {
		s.input = ""
	}
	s.mu.Unlock()
	s.notes.Success(model.MsgCommentAdded)
	return c, nil
}

// ToggleLike flips viewer's like on commentID. An unknown id is a no-op
// that returns the zero Comment and no error.
func (s *Section) ToggleLike(ctx context.Context, commentID string, viewer *model.UserSummary) (model.Comment, error) {
	s.mu.Lock()
	liked, found, err := s.store.ToggleLike(commentID, viewer)
	s.mu.Unlock()
	if err != nil {
		s.notes.Error(model.MsgSignInToLike)
		return model.Comment{}, err
	}
	if !found {
		log.Debugf("[Comments] like on unknown comment %s ignored", commentID)
		return model.Comment{}, nil
	}

	if s.persist != nil {
		if err := s.persist.SetCommentLike(ctx, commentID, viewer.ID, liked); err != nil {
			s.mu.Lock()
			s.store.ToggleLike(commentID, viewer)
			s.mu.Unlock()
			log.Warnf("[Comments] like on %s FAILED: %v", commentID, err)
			s.notes.Error(model.MsgLikeFailed)
			return model.Comment{}, fmt.Errorf("set comment like: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, _ := s.store.Get(commentID)
	c.LikedByViewer = liked
	return c, nil
}

// Comments lists the section for viewer, newest first.
func (s *Section) Comments(viewer *model.UserSummary) []model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ForViewer(viewer)
}
