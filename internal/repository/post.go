package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"inkcircle/internal/model"
)

const postColumns = `id, author_id, title, excerpt, content, tags, cover_image, state, read_time,
	like_count, comment_count, created_at, updated_at, published_at`

// postRow carries the tags column, which model.Post keeps out of sqlx.
type postRow struct {
	model.Post
	TagList pq.StringArray `db:"tags"`
}

func (r postRow) toModel() model.Post {
	p := r.Post
	p.Tags = []string(r.TagList)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}

func toModels(rows []postRow) []model.Post {
	posts := make([]model.Post, len(rows))
	for i := range rows {
		posts[i] = rows[i].toModel()
	}
	return posts
}

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

// Save upserts the post. Like and comment counters are owned by the
// reaction and comment tables and are not overwritten.
func (r *postRepository) Save(ctx context.Context, p model.Post) error {
	query := `
		INSERT INTO posts (id, author_id, title, excerpt, content, tags, cover_image, state, read_time,
		                   created_at, updated_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			excerpt = EXCLUDED.excerpt,
			content = EXCLUDED.content,
			tags = EXCLUDED.tags,
			cover_image = EXCLUDED.cover_image,
			state = EXCLUDED.state,
			read_time = EXCLUDED.read_time,
			updated_at = EXCLUDED.updated_at,
			published_at = EXCLUDED.published_at
		WHERE posts.author_id = EXCLUDED.author_id
	`
	result, err := r.db.ExecContext(ctx, query,
		p.ID, p.AuthorID, p.Title, p.Excerpt, p.Content, pq.Array(p.Tags), p.CoverImage,
		string(p.State), p.ReadTime, p.CreatedAt, p.UpdatedAt, p.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("save post: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotPostOwner
	}
	return nil
}

// GetByID retrieves a single post.
func (r *postRepository) GetByID(ctx context.Context, postID string) (*model.Post, error) {
	var row postRow
	err := r.db.GetContext(ctx, &row, `SELECT `+postColumns+` FROM posts WHERE id = $1`, postID)
	if err == sql.ErrNoRows {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	p := row.toModel()
	return &p, nil
}

// GetByIDs retrieves multiple posts by their IDs.
// Used for hydrating the feed from cache.
func (r *postRepository) GetByIDs(ctx context.Context, postIDs []string) ([]model.Post, error) {
	if len(postIDs) == 0 {
		return []model.Post{}, nil
	}

	var rows []postRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+postColumns+` FROM posts WHERE id = ANY($1)`, pq.Array(postIDs))
	if err != nil {
		return nil, fmt.Errorf("get posts by ids: %w", err)
	}

	// Re-order posts to match input order (important for feed ordering)
	byID := make(map[string]model.Post, len(rows))
	for _, row := range rows {
		byID[row.ID] = row.toModel()
	}
	ordered := make([]model.Post, 0, len(postIDs))
	for _, id := range postIDs {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// Delete removes a post for good, together with its comments and reactions.
func (r *postRepository) Delete(ctx context.Context, postID, authorID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1 AND author_id = $2`, postID, authorID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		// Check if post exists but belongs to different user
		var exists bool
		r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID)
		if exists {
			return model.ErrNotPostOwner
		}
		return model.ErrPostNotFound
	}
	return nil
}

func (r *postRepository) ListPublished(ctx context.Context, limit int) ([]model.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE state = 'published'
		ORDER BY published_at DESC, id DESC
		LIMIT $1
	`
	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	return toModels(rows), nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE author_id = $1
		ORDER BY updated_at DESC, id DESC
	`
	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, query, authorID); err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	return toModels(rows), nil
}

// IncrementCommentCount atomically updates the comment_count on a post.
func (r *postRepository) IncrementCommentCount(ctx context.Context, postID string, delta int) error {
	return incrementCommentCount(ctx, r.db, postID, delta)
}

func incrementCommentCount(ctx context.Context, ex sqlx.ExecerContext, postID string, delta int) error {
	query := `UPDATE posts SET comment_count = GREATEST(comment_count + $1, 0) WHERE id = $2`
	result, err := ex.ExecContext(ctx, query, delta, postID)
	if err != nil {
		return fmt.Errorf("update comment count: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrPostNotFound
	}
	return nil
}
