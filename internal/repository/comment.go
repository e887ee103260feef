package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"inkcircle/internal/model"
)

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts a comment. Uses transaction for atomic counter update.
func (r *commentRepository) Create(ctx context.Context, c model.Comment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, author_id, content, like_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.PostID, c.AuthorID, c.Content, c.LikeCount, c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return model.ErrPostNotFound
		}
		return fmt.Errorf("insert comment: %w", err)
	}

	if err := incrementCommentCount(ctx, tx, c.PostID, 1); err != nil {
		return err
	}
	return tx.Commit()
}

// ListByPost returns all comments for a post, newest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	query := `
		SELECT id, post_id, author_id, content, like_count, created_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at DESC, id DESC
	`
	comments := []model.Comment{}
	if err := r.db.SelectContext(ctx, &comments, query, postID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// SetLike records or removes a like and keeps like_count in step.
// Setting the state it already has is a no-op.
func (r *commentRepository) SetLike(ctx context.Context, commentID, userID string, liked bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var query string
	delta := 1
	if liked {
		query = `INSERT INTO comment_likes (comment_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	} else {
		query = `DELETE FROM comment_likes WHERE comment_id = $1 AND user_id = $2`
		delta = -1
	}
	result, err := tx.ExecContext(ctx, query, commentID, userID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return model.ErrCommentNotFound
		}
		return fmt.Errorf("set comment like: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return tx.Commit()
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE comments SET like_count = GREATEST(like_count + $1, 0) WHERE id = $2`, delta, commentID)
	if err != nil {
		return fmt.Errorf("update comment like count: %w", err)
	}
	return tx.Commit()
}

func (r *commentRepository) LikedBy(ctx context.Context, postID, userID string) ([]string, error) {
	query := `
		SELECT cl.comment_id
		FROM comment_likes cl
		JOIN comments c ON c.id = cl.comment_id
		WHERE c.post_id = $1 AND cl.user_id = $2
	`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, postID, userID); err != nil {
		return nil, fmt.Errorf("list liked comments: %w", err)
	}
	return ids, nil
}
