package composer

import (
	"inkcircle/internal/model"
	"inkcircle/internal/notify"
)

// Session is an open composer that buffers its notices and redirect until
// the caller drains them.
type Session struct {
	*Composer
	notes *notify.Recorder
	nav   *notify.RedirectRecorder
}

// Open builds a composer whose notices go to the session buffer and to
// deps.Notifier. deps.Navigator is replaced by the session.
func Open(post model.Post, deps Deps) (*Session, error) {
	s := &Session{notes: notify.NewRecorder(), nav: notify.NewRedirectRecorder()}
	deps.Notifier = notify.Tee(s.notes, deps.Notifier)
	deps.Navigator = s.nav

	c, err := New(post, deps)
	if err != nil {
		return nil, err
	}
	s.Composer = c
	return s, nil
}

// Drain hands back everything reported since the last call.
func (s *Session) Drain() ([]model.Notice, *string) {
	return s.notes.Drain(), s.nav.Take()
}
