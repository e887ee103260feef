package repository

import (
	"context"
	"time"

	"inkcircle/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetByIDs returns the users found, keyed by id. Missing ids are skipped.
	GetByIDs(ctx context.Context, ids []string) (map[string]model.User, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type PostRepository interface {
	// Save inserts or replaces the post row and its tags.
	Save(ctx context.Context, post model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	// GetByIDs keeps the order of ids and skips ids that no longer exist.
	GetByIDs(ctx context.Context, ids []string) ([]model.Post, error)
	Delete(ctx context.Context, id, authorID string) error
	// ListPublished returns published posts, newest published first.
	ListPublished(ctx context.Context, limit int) ([]model.Post, error)
	// ListByAuthor returns drafts and published posts, most recently updated first.
	ListByAuthor(ctx context.Context, authorID string) ([]model.Post, error)
	IncrementCommentCount(ctx context.Context, postID string, delta int) error
}

type CommentRepository interface {
	// Create stores the comment and bumps the post's comment count.
	Create(ctx context.Context, c model.Comment) error
	// ListByPost returns comments newest first.
	ListByPost(ctx context.Context, postID string) ([]model.Comment, error)
	SetLike(ctx context.Context, commentID, userID string, liked bool) error
	// LikedBy returns the ids of comments on postID that userID likes.
	LikedBy(ctx context.Context, postID, userID string) ([]string, error)
}

type ReactionRepository interface {
	// Toggle flips a per-viewer reaction and returns the new state and the
	// post's count for that reaction.
	Toggle(ctx context.Context, kind model.ReactionKind, postID, userID string) (active bool, count int, err error)
	// Has reports, per post id, whether userID holds the reaction.
	Has(ctx context.Context, kind model.ReactionKind, postIDs []string, userID string) (map[string]bool, error)
}
