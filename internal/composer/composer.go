// Package composer runs one post authoring session: the draft fields, the
// body document and the save/publish transitions.
package composer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"inkcircle/internal/auth"
	"inkcircle/internal/document"
	"inkcircle/internal/model"
	"inkcircle/internal/notify"
	"inkcircle/internal/tagstyle"
)

// Saver persists a post snapshot. It may take a while.
type Saver interface {
	SavePost(ctx context.Context, post model.Post) error
}

type Deps struct {
	Auth      auth.Context
	Saver     Saver
	Notifier  notify.Sink
	Navigator notify.Navigator
	Catalog   []string
	Now       func() time.Time
}

// Composer is not a document editor by itself; it wires a document.Document
// to the post it belongs to.
type Composer struct {
	mu     sync.Mutex
	post   model.Post
	doc    *document.Document
	saving atomic.Bool

	auth      auth.Context
	saver     Saver
	notes     notify.Sink
	navigator notify.Navigator
	catalog   []string
	now       func() time.Time
}

// New opens a session on post. Only the signed-in author may open it, and
// only while the post is a draft.
func New(post model.Post, deps Deps) (*Composer, error) {
	if !deps.Auth.IsAuthenticated() {
		return nil, model.ErrAuthRequired
	}
	if post.AuthorID != deps.Auth.UserID() {
		return nil, model.ErrNotPostOwner
	}
	if !post.IsDraft() {
		return nil, model.ErrAlreadyPublished
	}

	c := &Composer{
		post:      post.Clone(),
		auth:      deps.Auth,
		saver:     deps.Saver,
		notes:     deps.Notifier,
		navigator: deps.Navigator,
		catalog:   deps.Catalog,
		now:       deps.Now,
	}
	if c.notes == nil {
		c.notes = notify.Discard
	}
	if c.catalog == nil {
		c.catalog = tagstyle.DefaultCatalog
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.post.Tags == nil {
		c.post.Tags = []string{}
	}
	c.post.Author = deps.Auth.User()

	// The body is seeded once; afterwards the document is the source of truth.
	c.doc = document.New(c.post.Content, func(html string) { c.post.Content = html })
	c.post.Content = c.doc.HTML()
	return c, nil
}

func (c *Composer) ID() string { return c.post.ID }

// AuthorID is the owner the session was opened for.
func (c *Composer) AuthorID() string { return c.post.AuthorID }

// Saving reports whether a save or publish is in flight.
func (c *Composer) Saving() bool { return c.saving.Load() }

// Published reports whether the session's post has been published.
func (c *Composer) Published() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.post.IsDraft()
}

func (c *Composer) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.post.Title = title
}

// SetExcerpt overrides the derived excerpt. "" goes back to deriving it.
func (c *Composer) SetExcerpt(excerpt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.post.Excerpt = strings.TrimSpace(excerpt)
}

// AddTag reports false when the tag was ignored.
func (c *Composer) AddTag(tag string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.post.AddTag(tag)
}

func (c *Composer) RemoveTag(tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.post.RemoveTag(tag)
}

// SuggestTags completes a partially typed tag. Nothing is suggested until
// something is typed.
func (c *Composer) SuggestTags(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return tagstyle.Suggest(input, c.post.Tags, c.catalog, model.TagSuggestionLimit)
}

// SetCoverImage sets the single cover. ref must be a data URI or URL.
func (c *Composer) SetCoverImage(ref string) error {
	ref = strings.TrimSpace(ref)
	if !model.IsCoverReference(ref) {
		return model.ErrInvalidCoverImage
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.post.SetCoverImage(&ref)
	return nil
}

func (c *Composer) RemoveCoverImage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.post.SetCoverImage(nil)
}

// Apply runs an editor command on the body.
func (c *Composer) Apply(cmd document.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.Apply(cmd)
}

func (c *Composer) Select(start, end document.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.Select(start, end)
}

func (c *Composer) SelectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.SelectAll()
}

// Selection returns the body selection, if any.
func (c *Composer) Selection() (document.Selection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Selection()
}

func (c *Composer) InsertText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.InsertText(text)
}

func (c *Composer) InsertParagraph() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.InsertParagraph()
}

// Snapshot returns the post as it would be saved now.
func (c *Composer) Snapshot() model.Post {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Composer) snapshotLocked() model.Post {
	p := c.post.Clone()
	p.Title = strings.TrimSpace(p.Title)
	if p.Excerpt == "" {
		p.Excerpt = model.DeriveExcerpt(c.doc.PlainText())
	}
	p.ReadTime = model.ReadTimeFor(c.doc.WordCount())
	p.TagStyles = tagstyle.Styles(p.Tags)
	return p
}

// SaveDraft persists the post as a draft without validating it. Once
// started it runs to completion even if ctx is cancelled.
func (c *Composer) SaveDraft(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	if !c.saving.CompareAndSwap(false, true) {
		return model.ErrSaveInProgress
	}
	defer c.saving.Store(false)

	c.mu.Lock()
	if !c.post.IsDraft() {
		c.mu.Unlock()
		return model.ErrAlreadyPublished
	}
	prevUpdated := c.post.UpdatedAt
	c.post.UpdatedAt = c.now().UTC()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.save(ctx, snap); err != nil {
		c.mu.Lock()
		c.post.UpdatedAt = prevUpdated
		c.mu.Unlock()
		return fmt.Errorf("save draft: %w", err)
	}

	log.Infof("[Composer] SaveDraft OK: post=%s user=%s", snap.ID, c.auth.UserID())
	c.notes.Success(model.MsgDraftSaved)
	c.goTo(model.DashboardPath)
	return nil
}

// Publish validates and publishes the post. A failed validation reports
// one notice and leaves everything as it was. Like SaveDraft, it cannot be
// aborted through ctx.
func (c *Composer) Publish(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	if !c.saving.CompareAndSwap(false, true) {
		return model.ErrSaveInProgress
	}
	defer c.saving.Store(false)

	c.mu.Lock()
	if !c.post.IsDraft() {
		c.mu.Unlock()
		return model.ErrAlreadyPublished
	}
	if errs := c.post.ValidateForPublish(); len(errs) > 0 {
		c.mu.Unlock()
		c.notes.Error(model.MsgFixErrors)
		return &model.ValidationError{Fields: errs}
	}

	prevUpdated := c.post.UpdatedAt
	now := c.now().UTC()
	if err := c.post.Publish(now); err != nil {
		c.mu.Unlock()
		return err
	}
	c.post.UpdatedAt = now
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.save(ctx, snap); err != nil {
		c.mu.Lock()
		c.post.State = model.StateDraft
		c.post.PublishedAt = nil
		c.post.UpdatedAt = prevUpdated
		c.mu.Unlock()
		return fmt.Errorf("publish: %w", err)
	}

	log.Infof("[Composer] Publish OK: post=%s user=%s", snap.ID, c.auth.UserID())
	c.notes.Success(model.MsgPostPublished)
	c.goTo(model.DashboardPath)
	return nil
}

func (c *Composer) save(ctx context.Context, p model.Post) error {
	if c.saver == nil {
		return nil
	}
	if err := c.saver.SavePost(ctx, p); err != nil {
		log.Errorf("[Composer] SavePost FAILED: post=%s err=%v", p.ID, err)
		c.notes.Error(model.MsgSaveFailed)
		return err
	}
	return nil
}

func (c *Composer) goTo(path string) {
	if c.navigator != nil {
		c.navigator.GoTo(path)
	}
}
