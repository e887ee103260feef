package embedded

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"inkcircle/internal/model"
	"inkcircle/internal/repository"
)

func reactionPrefix(kind model.ReactionKind, postID string) string {
	return reactionKeyPrefix + string(kind) + ":" + postID + ":"
}

type reactionRepository struct {
	db *badger.DB
}

func NewReactionRepository(db *badger.DB) repository.ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Toggle(ctx context.Context, kind model.ReactionKind, postID, userID string) (bool, int, error) {
	if !kind.Valid() {
		return false, 0, model.ErrInvalidReactionKey
	}

	var active bool
	var count int
	err := r.db.Update(func(txn *badger.Txn) error {
		var post postRecord
		if err := getEntity(txn, postKeyPrefix+postID, &post, model.ErrPostNotFound); err != nil {
			return err
		}

		key := []byte(reactionPrefix(kind, postID) + userID)
		had, err := exists(txn, string(key))
		if err != nil {
			return err
		}
		active = !had
		if active {
			err = txn.Set(key, nil)
		} else {
			err = txn.Delete(key)
		}
		if err != nil {
			return err
		}

		if kind != model.ReactionLike {
			// The iterator sees this txn's own write.
			count = len(keys(txn, reactionPrefix(kind, postID)))
			return nil
		}
		if active {
			post.LikeCount++
		} else if post.LikeCount > 0 {
			post.LikeCount--
		}
		count = post.LikeCount
		return setEntity(txn, postKeyPrefix+postID, post)
	})
	if err != nil {
		return false, 0, err
	}
	return active, count, nil
}

func (r *reactionRepository) Has(ctx context.Context, kind model.ReactionKind, postIDs []string, userID string) (map[string]bool, error) {
	out := make(map[string]bool, len(postIDs))
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range postIDs {
			ok, err := exists(txn, reactionPrefix(kind, id)+userID)
			if err != nil {
				return err
			}
			out[id] = ok
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
