package embedded

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"inkcircle/internal/model"
	"inkcircle/internal/repository"
)

// userRecord is the stored form; model.User hides the hash from JSON.
type userRecord struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHashed string    `json:"password_hashed"`
	AvatarURL      *string   `json:"avatar_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (r userRecord) toModel() *model.User {
	return &model.User{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		PasswordHashed: r.PasswordHashed,
		AvatarURL:      r.AvatarURL,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type userRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return putUser(txn, u, time.Now().UTC())
	})
}

func putUser(txn *badger.Txn, u *model.User, now time.Time) error {
	taken, err := exists(txn, emailKeyPrefix+u.Email)
	if err != nil {
		return err
	}
	if taken {
		return model.ErrEmailExists
	}

	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	rec := userRecord{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		PasswordHashed: u.PasswordHashed,
		AvatarURL:      u.AvatarURL,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	if err := setEntity(txn, userKeyPrefix+u.ID, rec); err != nil {
		return err
	}
	return txn.Set([]byte(emailKeyPrefix+u.Email), []byte(u.ID))
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var rec userRecord
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, userKeyPrefix+id, &rec, model.ErrUserNotFound)
	})
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var rec userRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(emailKeyPrefix + email))
		if err == badger.ErrKeyNotFound {
			return model.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getEntity(txn, userKeyPrefix+string(id), &rec, model.ErrUserNotFound)
	})
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []string) (map[string]model.User, error) {
	out := make(map[string]model.User, len(ids))
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			var rec userRecord
			err := getEntity(txn, userKeyPrefix+id, &rec, model.ErrUserNotFound)
			if err == model.ErrUserNotFound {
				continue
			}
			if err != nil {
				return err
			}
			out[id] = *rec.toModel()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
