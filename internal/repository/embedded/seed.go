package embedded

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"inkcircle/internal/fixtures"
)

// Seed loads ds into an empty store. A store that was seeded before is
// left alone so a persistent BADGER_PATH keeps its edits across restarts.
func Seed(db *badger.DB, ds *fixtures.Dataset) error {
	var seeded bool
	err := db.View(func(txn *badger.Txn) error {
		var err error
		seeded, err = exists(txn, seededKey)
		return err
	})
	if err != nil {
		return fmt.Errorf("check seed marker: %w", err)
	}
	if seeded {
		log.Infof("[Embedded] Seed skipped: store already seeded")
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(fixtures.DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	err = db.Update(func(txn *badger.Txn) error {
		now := time.Now().UTC()
		for _, fu := range ds.Users {
			u := fu.ToModel()
			u.PasswordHashed = string(hashed)
			if err := putUser(txn, &u, now); err != nil {
				return fmt.Errorf("seed user %s: %w", u.ID, err)
			}
		}
		for _, fp := range ds.Posts {
			if err := putPost(txn, fp.ToModel()); err != nil {
				return fmt.Errorf("seed post %s: %w", fp.ID, err)
			}
		}
		for _, fc := range ds.Comments {
			if err := putComment(txn, fc.ToModel()); err != nil {
				return fmt.Errorf("seed comment %s: %w", fc.ID, err)
			}
		}
		return txn.Set([]byte(seededKey), []byte(ds.Theme))
	})
	if err != nil {
		return err
	}

	log.Infof("[Embedded] Seed OK: theme=%s users=%d posts=%d comments=%d",
		ds.Theme, len(ds.Users), len(ds.Posts), len(ds.Comments))
	return nil
}

// SeededTheme returns the theme the store was seeded with, or "".
func SeededTheme(db *badger.DB) (string, error) {
	var theme string
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(seededKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		theme = string(v)
		return err
	})
	return theme, err
}

