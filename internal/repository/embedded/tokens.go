package embedded

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"inkcircle/internal/model"
	"inkcircle/internal/repository"
)

type tokenRecord struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	TokenHash  string     `json:"token_hash"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy *string    `json:"replaced_by,omitempty"`
	UserAgent  *string    `json:"user_agent,omitempty"`
}

func (r tokenRecord) toModel() *model.RefreshToken {
	t := model.RefreshToken(r)
	return &t
}

type refreshTokenRepository struct {
	db *badger.DB
}

func NewRefreshTokenRepository(db *badger.DB) repository.RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	token.CreatedAt = time.Now().UTC()
	return r.db.Update(func(txn *badger.Txn) error {
		if err := setEntity(txn, tokenKeyPrefix+token.ID, tokenRecord(*token)); err != nil {
			return err
		}
		return txn.Set([]byte(tokenHashKeyPrefix+token.TokenHash), []byte(token.ID))
	})
}

func (r *refreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var rec tokenRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tokenHashKeyPrefix + tokenHash))
		if err == badger.ErrKeyNotFound {
			return model.ErrRefreshTokenNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getEntity(txn, tokenKeyPrefix+string(id), &rec, model.ErrRefreshTokenNotFound)
	})
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, id string, replacedBy *string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		var rec tokenRecord
		err := getEntity(txn, tokenKeyPrefix+id, &rec, model.ErrRefreshTokenNotFound)
		if err != nil || rec.RevokedAt != nil {
			return err
		}
		now := time.Now().UTC()
		rec.RevokedAt = &now
		rec.ReplacedBy = replacedBy
		return setEntity(txn, tokenKeyPrefix+id, rec)
	})
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		var active []tokenRecord
		err := eachValue(txn, tokenKeyPrefix, func(val []byte) error {
			var rec tokenRecord
			if err := unmarshalEntity(val, &rec); err != nil {
				return err
			}
			if rec.UserID == userID && rec.RevokedAt == nil {
				active = append(active, rec)
			}
			return nil
		})
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, rec := range active {
			rec.RevokedAt = &now
			if err := setEntity(txn, tokenKeyPrefix+rec.ID, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	var deleted int64
	err := r.db.Update(func(txn *badger.Txn) error {
		var expired []tokenRecord
		err := eachValue(txn, tokenKeyPrefix, func(val []byte) error {
			var rec tokenRecord
			if err := unmarshalEntity(val, &rec); err != nil {
				return err
			}
			if rec.ExpiresAt.Before(cutoff) {
				expired = append(expired, rec)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, rec := range expired {
			if err := txn.Delete([]byte(tokenKeyPrefix + rec.ID)); err != nil {
				return err
			}
			if err := txn.Delete([]byte(tokenHashKeyPrefix + rec.TokenHash)); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}
