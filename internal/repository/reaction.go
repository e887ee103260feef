package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"inkcircle/internal/model"
)

type reactionRepository struct {
	db *sqlx.DB
}

func NewReactionRepository(db *sqlx.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

// Toggle flips the reaction in one transaction. Likes also maintain
// posts.like_count; bookmarks are counted from the reactions table.
func (r *reactionRepository) Toggle(ctx context.Context, kind model.ReactionKind, postID, userID string) (bool, int, error) {
	if !kind.Valid() {
		return false, 0, model.ErrInvalidReactionKey
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM post_reactions WHERE kind = $1 AND post_id = $2 AND user_id = $3`, string(kind), postID, userID)
	if err != nil {
		return false, 0, fmt.Errorf("delete reaction: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("get rows affected: %w", err)
	}

	active := removed == 0
	if active {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO post_reactions (kind, post_id, user_id) VALUES ($1, $2, $3)`, string(kind), postID, userID)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23503" {
				return false, 0, model.ErrPostNotFound
			}
			return false, 0, fmt.Errorf("insert reaction: %w", err)
		}
	}

	var count int
	if kind == model.ReactionLike {
		delta := -1
		if active {
			delta = 1
		}
		err = tx.GetContext(ctx, &count,
			`UPDATE posts SET like_count = GREATEST(like_count + $1, 0) WHERE id = $2 RETURNING like_count`, delta, postID)
	} else {
		err = tx.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM post_reactions WHERE kind = $1 AND post_id = $2`, string(kind), postID)
	}
	if err != nil {
		return false, 0, fmt.Errorf("count reactions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit transaction: %w", err)
	}
	return active, count, nil
}

// Has checks which posts the user reacted to.
// Returns a map of post_id -> reacted (true/false).
func (r *reactionRepository) Has(ctx context.Context, kind model.ReactionKind, postIDs []string, userID string) (map[string]bool, error) {
	result := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	var ids []string
	query := `SELECT post_id FROM post_reactions WHERE kind = $1 AND user_id = $2 AND post_id = ANY($3)`
	if err := r.db.SelectContext(ctx, &ids, query, string(kind), userID, pq.Array(postIDs)); err != nil {
		return nil, fmt.Errorf("check reactions: %w", err)
	}
	for _, id := range postIDs {
		result[id] = false
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}
