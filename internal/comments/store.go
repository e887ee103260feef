// Package comments keeps the per-post comment list: adding comments and
// toggling per-viewer likes.
package comments

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"inkcircle/internal/model"
)

// Store holds the comments of one post, newest first.
// It is not safe for concurrent use; Section serializes access.
type Store struct {
	postID   string
	comments []model.Comment
	likes    map[string]map[string]struct{} // comment id -> user ids
	now      func() time.Time
	newID    func() string
}

// NewStore seeds the list. existing is expected newest first.
func NewStore(postID string, existing []model.Comment) *Store {
	s := &Store{
		postID:   postID,
		comments: make([]model.Comment, 0, len(existing)),
		likes:    make(map[string]map[string]struct{}),
		now:      time.Now,
		newID:    newCommentID,
	}
	for _, c := range existing {
		c.LikedByViewer = false
		s.comments = append(s.comments, c)
	}
	return s
}

func newCommentID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// MarkLiked records that userID already likes commentID without changing counts.
func (s *Store) MarkLiked(commentID, userID string) {
	set, ok := s.likes[commentID]
	if !ok {
		set = make(map[string]struct{})
		s.likes[commentID] = set
	}
	set[userID] = struct{}{}
}

// Add prepends a new comment by author with zero likes.
func (s *Store) Add(content string, author *model.UserSummary) (model.Comment, error) {
	if author == nil {
		return model.Comment{}, model.ErrAuthRequired
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Comment{}, model.ErrContentRequired
	}
	if len([]rune(content)) > model.MaxCommentLength {
		return model.Comment{}, model.ErrContentTooLong
	}

	a := *author
	c := model.Comment{
		ID:        s.newID(),
		PostID:    s.postID,
		AuthorID:  a.ID,
		Content:   content,
		CreatedAt: s.now().UTC(),
		Author:    &a,
	}
	s.comments = append([]model.Comment{c}, s.comments...)
	return c, nil
}

// Remove drops a comment. Used to roll back a failed add.
func (s *Store) Remove(commentID string) bool {
	for i := range s.comments {
		if s.comments[i].ID == commentID {
			s.comments = append(s.comments[:i], s.comments[i+1:]...)
			delete(s.likes, commentID)
			return true
		}
	}
	return false
}

// ToggleLike flips viewer's like on commentID and adjusts its count by one.
// Unknown ids are ignored and report found=false.
func (s *Store) ToggleLike(commentID string, viewer *model.UserSummary) (liked, found bool, err error) {
	if viewer == nil {
		return false, false, model.ErrAuthRequired
	}
	i := s.index(commentID)
	if i < 0 {
		return false, false, nil
	}

	c := &s.comments[i]
	set := s.likes[commentID]
	if _, ok := set[viewer.ID]; ok {
		delete(set, viewer.ID)
		if c.LikeCount > 0 {
			c.LikeCount--
		}
		return false, true, nil
	}
	s.MarkLiked(commentID, viewer.ID)
	c.LikeCount++
	return true, true, nil
}

// LikedBy reports whether userID likes commentID.
func (s *Store) LikedBy(commentID, userID string) bool {
	_, ok := s.likes[commentID][userID]
	return ok
}

// Get returns a copy of one comment.
func (s *Store) Get(commentID string) (model.Comment, bool) {
	i := s.index(commentID)
	if i < 0 {
		return model.Comment{}, false
	}
	return copyComment(s.comments[i]), true
}

func (s *Store) Len() int { return len(s.comments) }

// ForViewer returns the list, newest first, with LikedByViewer filled for viewer.
func (s *Store) ForViewer(viewer *model.UserSummary) []model.Comment {
	out := make([]model.Comment, len(s.comments))
	for i, c := range s.comments {
		out[i] = copyComment(c)
		if viewer != nil {
			out[i].LikedByViewer = s.LikedBy(c.ID, viewer.ID)
		}
	}
	return out
}

func (s *Store) index(commentID string) int {
	for i := range s.comments {
		if s.comments[i].ID == commentID {
			return i
		}
	}
	return -1
}

func copyComment(c model.Comment) model.Comment {
	if c.Author != nil {
		a := *c.Author
		c.Author = &a
	}
	return c
}
