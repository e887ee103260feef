package embedded

import (
	"context"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"inkcircle/internal/model"
	"inkcircle/internal/repository"
)

// postRecord is the stored form of a post, without the per-viewer fields.
type postRecord struct {
	ID           string     `json:"id"`
	AuthorID     string     `json:"author_id"`
	Title        string     `json:"title"`
	Excerpt      string     `json:"excerpt"`
	Content      string     `json:"content"`
	Tags         []string   `json:"tags"`
	CoverImage   *string    `json:"cover_image,omitempty"`
	State        string     `json:"state"`
	ReadTime     string     `json:"read_time"`
	LikeCount    int        `json:"like_count"`
	CommentCount int        `json:"comment_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
}

func newPostRecord(p model.Post) postRecord {
	return postRecord{
		ID:           p.ID,
		AuthorID:     p.AuthorID,
		Title:        p.Title,
		Excerpt:      p.Excerpt,
		Content:      p.Content,
		Tags:         append([]string{}, p.Tags...),
		CoverImage:   p.CoverImage,
		State:        string(p.State),
		ReadTime:     p.ReadTime,
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		PublishedAt:  p.PublishedAt,
	}
}

func (r postRecord) toModel() model.Post {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return model.Post{
		ID:           r.ID,
		AuthorID:     r.AuthorID,
		Title:        r.Title,
		Excerpt:      r.Excerpt,
		Content:      r.Content,
		Tags:         tags,
		CoverImage:   r.CoverImage,
		State:        model.PostState(r.State),
		ReadTime:     r.ReadTime,
		LikeCount:    r.LikeCount,
		CommentCount: r.CommentCount,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		PublishedAt:  r.PublishedAt,
	}
}

type postRepository struct {
	db *badger.DB
}

func NewPostRepository(db *badger.DB) repository.PostRepository {
	return &postRepository{db: db}
}

// Save upserts the post, keeping the stored counters.
func (r *postRepository) Save(ctx context.Context, p model.Post) error {
	return r.db.Update(func(txn *badger.Txn) error {
		rec := newPostRecord(p)
		var existing postRecord
		err := getEntity(txn, postKeyPrefix+p.ID, &existing, model.ErrPostNotFound)
		switch err {
		case nil:
			if existing.AuthorID != p.AuthorID {
				return model.ErrNotPostOwner
			}
			rec.LikeCount = existing.LikeCount
			rec.CommentCount = existing.CommentCount
			rec.CreatedAt = existing.CreatedAt
		case model.ErrPostNotFound:
		default:
			return err
		}
		return setEntity(txn, postKeyPrefix+p.ID, rec)
	})
}

// putPost writes a record as-is, counters included. Used by Seed.
func putPost(txn *badger.Txn, p model.Post) error {
	return setEntity(txn, postKeyPrefix+p.ID, newPostRecord(p))
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var rec postRecord
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, postKeyPrefix+id, &rec, model.ErrPostNotFound)
	})
	if err != nil {
		return nil, err
	}
	p := rec.toModel()
	return &p, nil
}

func (r *postRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Post, error) {
	posts := make([]model.Post, 0, len(ids))
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			var rec postRecord
			err := getEntity(txn, postKeyPrefix+id, &rec, model.ErrPostNotFound)
			if err == model.ErrPostNotFound {
				continue
			}
			if err != nil {
				return err
			}
			posts = append(posts, rec.toModel())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Delete removes the post with its comments, comment likes and reactions.
func (r *postRepository) Delete(ctx context.Context, id, authorID string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		var rec postRecord
		if err := getEntity(txn, postKeyPrefix+id, &rec, model.ErrPostNotFound); err != nil {
			return err
		}
		if rec.AuthorID != authorID {
			return model.ErrNotPostOwner
		}

		// A read-write txn allows one open iterator at a time.
		var commentIDs []string
		err := eachValue(txn, commentKeyPrefix+id+":", func(val []byte) error {
			var c commentRecord
			if err := unmarshalEntity(val, &c); err != nil {
				return err
			}
			commentIDs = append(commentIDs, c.ID)
			return nil
		})
		if err != nil {
			return err
		}

		var doomed [][]byte
		for _, cid := range commentIDs {
			doomed = append(doomed, []byte(commentIdxPrefix+cid))
			doomed = append(doomed, keys(txn, commentLikeKeyPrefix+cid+":")...)
		}
		doomed = append(doomed, keys(txn, commentKeyPrefix+id+":")...)
		for _, kind := range []model.ReactionKind{model.ReactionLike, model.ReactionBookmark} {
			doomed = append(doomed, keys(txn, reactionPrefix(kind, id))...)
		}
		doomed = append(doomed, []byte(postKeyPrefix+id))

		for _, k := range doomed {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *postRepository) ListPublished(ctx context.Context, limit int) ([]model.Post, error) {
	posts, err := r.scan(func(p *postRecord) bool { return p.State == string(model.StatePublished) })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := publishedAt(posts[i]), publishedAt(posts[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return posts[i].ID > posts[j].ID
	})
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func publishedAt(p model.Post) time.Time {
	if p.PublishedAt != nil {
		return *p.PublishedAt
	}
	return p.CreatedAt
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	posts, err := r.scan(func(p *postRecord) bool { return p.AuthorID == authorID })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].UpdatedAt.Equal(posts[j].UpdatedAt) {
			return posts[i].UpdatedAt.After(posts[j].UpdatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
	return posts, nil
}

func (r *postRepository) scan(keep func(*postRecord) bool) ([]model.Post, error) {
	posts := []model.Post{}
	err := r.db.View(func(txn *badger.Txn) error {
		return eachValue(txn, postKeyPrefix, func(val []byte) error {
			var rec postRecord
			if err := unmarshalEntity(val, &rec); err != nil {
				return err
			}
			if keep(&rec) {
				posts = append(posts, rec.toModel())
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) IncrementCommentCount(ctx context.Context, postID string, delta int) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return bumpCommentCount(txn, postID, delta)
	})
}

func bumpCommentCount(txn *badger.Txn, postID string, delta int) error {
	var rec postRecord
	if err := getEntity(txn, postKeyPrefix+postID, &rec, model.ErrPostNotFound); err != nil {
		return err
	}
	rec.CommentCount += delta
	if rec.CommentCount < 0 {
		rec.CommentCount = 0
	}
	return setEntity(txn, postKeyPrefix+postID, rec)
}
