package model

import (
	"errors"
	"time"
)

// Comment represents a comment on a post.
type Comment struct {
	ID        string       `db:"id" json:"id"`
	PostID    string       `db:"post_id" json:"post_id"`
	AuthorID  string       `db:"author_id" json:"-"`
	Content   string       `db:"content" json:"content"`
	LikeCount int          `db:"like_count" json:"like_count"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	Author    *UserSummary `db:"-" json:"author,omitempty"` // Joined field

	// LikedByViewer is computed for whoever is looking at the list.
	LikedByViewer bool `db:"-" json:"liked_by_viewer"`
}

// CreateCommentRequest is the request body for creating a comment.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// CommentListResponse is the comment thread for a post, newest first.
type CommentListResponse struct {
	Comments []Comment `json:"comments"`
	Count    int       `json:"count"`
	Notices  []Notice  `json:"notices,omitempty"`
}

// Comment constraints
const (
	MaxCommentLength = 2000
)

// Comment errors
var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrContentRequired = errors.New("comment content is required")
	ErrContentTooLong  = errors.New("comment content too long")
	ErrSubmitting      = errors.New("comment submission in progress")
)
