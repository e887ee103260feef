package embedded

import (
	"context"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"inkcircle/internal/model"
	"inkcircle/internal/repository"
)

type commentRecord struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	LikeCount int       `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
}

func (r commentRecord) toModel() model.Comment {
	return model.Comment{
		ID:        r.ID,
		PostID:    r.PostID,
		AuthorID:  r.AuthorID,
		Content:   r.Content,
		LikeCount: r.LikeCount,
		CreatedAt: r.CreatedAt,
	}
}

func commentKey(postID, commentID string) string {
	return commentKeyPrefix + postID + ":" + commentID
}

func commentLikeKey(commentID, userID string) string {
	return commentLikeKeyPrefix + commentID + ":" + userID
}

type commentRepository struct {
	db *badger.DB
}

func NewCommentRepository(db *badger.DB) repository.CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, c model.Comment) error {
	return r.db.Update(func(txn *badger.Txn) error {
		if err := putComment(txn, c); err != nil {
			return err
		}
		return bumpCommentCount(txn, c.PostID, 1)
	})
}

// putComment stores c without touching the post's counter.
func putComment(txn *badger.Txn, c model.Comment) error {
	ok, err := exists(txn, postKeyPrefix+c.PostID)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrPostNotFound
	}
	rec := commentRecord{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		LikeCount: c.LikeCount,
		CreatedAt: c.CreatedAt,
	}
	if err := setEntity(txn, commentKey(c.PostID, c.ID), rec); err != nil {
		return err
	}
	return txn.Set([]byte(commentIdxPrefix+c.ID), []byte(c.PostID))
}

func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	comments := []model.Comment{}
	err := r.db.View(func(txn *badger.Txn) error {
		return eachValue(txn, commentKeyPrefix+postID+":", func(val []byte) error {
			var rec commentRecord
			if err := unmarshalEntity(val, &rec); err != nil {
				return err
			}
			comments = append(comments, rec.toModel())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID > comments[j].ID
	})
	return comments, nil
}

func (r *commentRepository) SetLike(ctx context.Context, commentID, userID string, liked bool) error {
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(commentIdxPrefix + commentID))
		if err == badger.ErrKeyNotFound {
			return model.ErrCommentNotFound
		}
		if err != nil {
			return err
		}
		postID, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		likeKey := commentLikeKey(commentID, userID)
		has, err := exists(txn, likeKey)
		if err != nil {
			return err
		}
		if has == liked {
			return nil
		}

		key := commentKey(string(postID), commentID)
		var rec commentRecord
		if err := getEntity(txn, key, &rec, model.ErrCommentNotFound); err != nil {
			return err
		}
		if liked {
			rec.LikeCount++
			if err := txn.Set([]byte(likeKey), nil); err != nil {
				return err
			}
		} else {
			if rec.LikeCount > 0 {
				rec.LikeCount--
			}
			if err := txn.Delete([]byte(likeKey)); err != nil {
				return err
			}
		}
		return setEntity(txn, key, rec)
	})
}

func (r *commentRepository) LikedBy(ctx context.Context, postID, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.View(func(txn *badger.Txn) error {
		return eachValue(txn, commentKeyPrefix+postID+":", func(val []byte) error {
			var rec commentRecord
			if err := unmarshalEntity(val, &rec); err != nil {
				return err
			}
			ok, err := exists(txn, commentLikeKey(rec.ID, userID))
			if err != nil {
				return err
			}
			if ok {
				ids = append(ids, rec.ID)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
