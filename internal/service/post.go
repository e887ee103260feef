package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"inkcircle/internal/auth"
	"inkcircle/internal/cache"
	"inkcircle/internal/composer"
	"inkcircle/internal/document"
	"inkcircle/internal/model"
	"inkcircle/internal/notify"
	"inkcircle/internal/queue"
	"inkcircle/internal/repository"
	"inkcircle/internal/tagstyle"
)

// Dashboard tabs
const (
	TabPublished = "published"
	TabDrafts    = "drafts"
)

type PostService struct {
	postRepo     repository.PostRepository
	reactionRepo repository.ReactionRepository
	users        *UserService
	publisher    queue.Publisher
	feedCache    cache.FeedCache // nil when Redis is not configured
	media        CoverUploader   // nil keeps data URIs inline
	sessions     *composer.Registry

	categories []string
	catalog    []string
	now        func() time.Time
}

// PostServiceConfig carries the theme data the service presents.
type PostServiceConfig struct {
	Categories []string
	TagCatalog []string
}

func NewPostService(
	postRepo repository.PostRepository,
	reactionRepo repository.ReactionRepository,
	users *UserService,
	publisher queue.Publisher,
	cfg PostServiceConfig,
) *PostService {
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	if cfg.Categories == nil {
		cfg.Categories = model.Categories
	}
	if cfg.TagCatalog == nil {
		cfg.TagCatalog = tagstyle.DefaultCatalog
	}
	return &PostService{
		postRepo:     postRepo,
		reactionRepo: reactionRepo,
		users:        users,
		publisher:    publisher,
		sessions:     composer.NewRegistry(),
		categories:   cfg.Categories,
		catalog:      cfg.TagCatalog,
		now:          time.Now,
	}
}

// WithFeedCache serves the home feed from cache when it is warm.
func (s *PostService) WithFeedCache(c cache.FeedCache) *PostService {
	s.feedCache = c
	return s
}

// WithCoverUploader moves inline covers to object storage on save.
func (s *PostService) WithCoverUploader(u CoverUploader) *PostService {
	s.media = u
	return s
}

// =============================================================================
// Composer sessions
// =============================================================================

// OpenDraft starts a new, unsaved draft for the viewer.
func (s *PostService) OpenDraft(ctx context.Context, a auth.Context) (*composer.Session, error) {
	if !a.IsAuthenticated() {
		return nil, model.ErrAuthRequired
	}
	post := model.NewDraft(uuid.NewString(), a.UserID(), s.now().UTC())
	sess, err := s.openSession(post, a)
	if err != nil {
		return nil, err
	}
	s.sessions.Put(sess)
	log.Infof("[PostService] OpenDraft OK: post=%s user=%s", post.ID, a.UserID())
	return sess, nil
}

// Session returns the open composer for postID, reopening it from storage
// when the server has none.
func (s *PostService) Session(ctx context.Context, a auth.Context, postID string) (*composer.Session, error) {
	if !a.IsAuthenticated() {
		return nil, model.ErrAuthRequired
	}
	sess, err := s.sessions.GetOrOpen(postID, func() (*composer.Session, error) {
		post, err := s.postRepo.GetByID(ctx, postID)
		if err != nil {
			return nil, err
		}
		return s.openSession(*post, a)
	})
	if err != nil {
		return nil, err
	}
	if sess.AuthorID() != a.UserID() {
		return nil, model.ErrNotPostOwner
	}
	if sess.Published() {
		s.sessions.Close(postID)
		return nil, model.ErrAlreadyPublished
	}
	return sess, nil
}

func (s *PostService) openSession(post model.Post, a auth.Context) (*composer.Session, error) {
	return composer.Open(post, composer.Deps{
		Auth:     a,
		Saver:    &postSaver{svc: s},
		Notifier: notify.NewLogSink("composer"),
		Catalog:  s.catalog,
		Now:      s.now,
	})
}

// UpdateDraft applies field edits. Tags that could not be added are returned.
func (s *PostService) UpdateDraft(ctx context.Context, a auth.Context, postID string, req model.UpdateDraftRequest) (*composer.Session, []string, error) {
	sess, err := s.Session(ctx, a, postID)
	if err != nil {
		return nil, nil, err
	}

	if req.Title != nil {
		sess.SetTitle(*req.Title)
	}
	if req.Excerpt != nil {
		sess.SetExcerpt(*req.Excerpt)
	}
	for _, tag := range req.RemoveTags {
		sess.RemoveTag(tag)
	}
	var rejected []string
	for _, tag := range req.AddTags {
		if !sess.AddTag(tag) {
			rejected = append(rejected, tag)
		}
	}
	if req.RemoveCover {
		sess.RemoveCoverImage()
	}
	if req.CoverImage != nil {
		if err := sess.SetCoverImage(*req.CoverImage); err != nil {
			return sess, rejected, err
		}
	}
	return sess, rejected, nil
}

// ApplyCommand moves the selection, then runs one editor command or text insert.
func (s *PostService) ApplyCommand(ctx context.Context, a auth.Context, postID string, req model.CommandRequest) (*composer.Session, error) {
	var cmd *document.Command
	if req.Command != "" {
		parsed, err := document.ParseCommand(req.Command)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", model.ErrUnknownCommand, req.Command)
		}
		cmd = &parsed
	}

	sess, err := s.Session(ctx, a, postID)
	if err != nil {
		return nil, err
	}

	switch {
	case req.SelectAll:
		sess.SelectAll()
	case req.Selection != nil:
		sess.Select(
			document.Position{Block: req.Selection.Start.Block, Offset: req.Selection.Start.Offset},
			document.Position{Block: req.Selection.End.Block, Offset: req.Selection.End.Offset},
		)
	}

	if cmd != nil {
		sess.Apply(*cmd)
	}
	if req.InsertText != nil {
		sess.InsertText(*req.InsertText)
	}
	if req.NewBlock {
		sess.InsertParagraph()
	}
	return sess, nil
}

func (s *PostService) SuggestTags(ctx context.Context, a auth.Context, postID, input string) ([]string, error) {
	sess, err := s.Session(ctx, a, postID)
	if err != nil {
		return nil, err
	}
	return sess.SuggestTags(input), nil
}

// SaveDraft persists the session as a draft.
func (s *PostService) SaveDraft(ctx context.Context, a auth.Context, postID string) (*composer.Session, error) {
	sess, err := s.Session(ctx, a, postID)
	if err != nil {
		return nil, err
	}
	return sess, sess.SaveDraft(ctx)
}

// Publish validates and publishes the session. A published session is closed.
func (s *PostService) Publish(ctx context.Context, a auth.Context, postID string) (*composer.Session, error) {
	sess, err := s.Session(ctx, a, postID)
	if err != nil {
		return nil, err
	}
	if err := sess.Publish(ctx); err != nil {
		return sess, err
	}
	s.sessions.Close(postID)
	return sess, nil
}

// postSaver is the composer's persistence port.
type postSaver struct {
	svc *PostService
}

func (p *postSaver) SavePost(ctx context.Context, post model.Post) error {
	s := p.svc

	if s.media != nil && post.CoverImage != nil && model.IsDataURI(*post.CoverImage) {
		res, err := s.media.UploadCoverDataURI(ctx, *post.CoverImage)
		if err != nil {
			return fmt.Errorf("upload cover: %w", err)
		}
		post.CoverImage = &res.URL
	}

	post.Author = nil
	post.TagStyles = nil
	if err := s.postRepo.Save(ctx, post); err != nil {
		return err
	}

	if post.State == model.StatePublished && post.PublishedAt != nil {
		event := queue.NewPostPublishedEvent(post.ID, post.AuthorID, *post.PublishedAt)
		if _, err := s.publisher.Publish(ctx, queue.StreamFeed, event); err != nil {
			// The post is stored; the feed catches up on the next rebuild.
			log.Warnf("[PostService] Failed to publish PostPublished event: post=%s err=%v", post.ID, err)
		}
	}
	return nil
}

// =============================================================================
// Reading
// =============================================================================

// ListPublished returns the home feed. The first matching post is featured.
func (s *PostService) ListPublished(ctx context.Context, viewer auth.Context, category string, limit int) (*model.FeedResponse, error) {
	limit = clampLimit(limit)
	if strings.TrimSpace(category) == "" {
		category = model.CategoryAll
	}

	fetch := limit
	if category != model.CategoryAll {
		fetch = cache.FeedCacheCap
	}

	posts, err := s.publishedPosts(ctx, fetch)
	if err != nil {
		return nil, err
	}

	matched := make([]model.Post, 0, limit)
	for _, p := range posts {
		if len(matched) == limit {
			break
		}
		if tagstyle.MatchesCategory(p.Tags, category) {
			matched = append(matched, p)
		}
	}

	if err := s.decorate(ctx, viewer, matched); err != nil {
		return nil, err
	}
	for i := range matched {
		matched[i].Content = ""
		if len(matched[i].Tags) > model.CardTagLimit {
			matched[i].Tags = matched[i].Tags[:model.CardTagLimit]
			matched[i].TagStyles = tagstyle.Styles(matched[i].Tags)
		}
	}

	resp := &model.FeedResponse{Posts: matched, Categories: s.categories}
	if len(matched) > 0 {
		featured := matched[0]
		resp.Featured = &featured
		resp.Posts = matched[1:]
	}
	return resp, nil
}

// publishedPosts reads through the feed cache when one is configured.
func (s *PostService) publishedPosts(ctx context.Context, limit int) ([]model.Post, error) {
	if s.feedCache != nil {
		posts, err := s.cachedFeed(ctx, limit)
		if err == nil {
			return posts, nil
		}
		log.Warnf("[PostService] Feed cache unavailable, reading storage: err=%v", err)
	}

	posts, err := s.postRepo.ListPublished(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list published: %w", err)
	}
	return posts, nil
}

func (s *PostService) cachedFeed(ctx context.Context, limit int) ([]model.Post, error) {
	exists, err := s.feedCache.Exists(ctx)
	if err != nil {
		return nil, err
	}

	if !exists {
		posts, err := s.postRepo.ListPublished(ctx, cache.FeedCacheCap)
		if err != nil {
			return nil, fmt.Errorf("list published: %w", err)
		}
		if err := s.feedCache.WarmCache(ctx, feedScores(posts)); err != nil {
			log.Warnf("[PostService] WarmCache failed: err=%v", err)
		}
		if len(posts) > limit {
			posts = posts[:limit]
		}
		return posts, nil
	}

	ids, err := s.feedCache.GetFeed(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.postRepo.GetByIDs(ctx, ids)
}

// PublishedScores feeds a worker rebuild.
func (s *PostService) PublishedScores(ctx context.Context, limit int) ([]cache.PostScore, error) {
	posts, err := s.postRepo.ListPublished(ctx, limit)
	if err != nil {
		return nil, err
	}
	return feedScores(posts), nil
}

func feedScores(posts []model.Post) []cache.PostScore {
	out := make([]cache.PostScore, 0, len(posts))
	for _, p := range posts {
		if p.PublishedAt == nil {
			continue
		}
		out = append(out, cache.PostScore{PostID: p.ID, Timestamp: p.PublishedAt.Unix()})
	}
	return out
}

// GetPost returns a published post, or a draft to its author.
func (s *PostService) GetPost(ctx context.Context, viewer auth.Context, postID string) (*model.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.IsDraft() && post.AuthorID != viewer.UserID() {
		return nil, model.ErrPostNotFound
	}

	posts := []model.Post{*post}
	if err := s.decorate(ctx, viewer, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// Dashboard lists the viewer's posts. tab narrows to one state and q
// matches titles or tags, ignoring case.
func (s *PostService) Dashboard(ctx context.Context, viewer auth.Context, tab, q string) (*model.DashboardResponse, error) {
	if !viewer.IsAuthenticated() {
		return nil, model.ErrAuthRequired
	}

	posts, err := s.postRepo.ListByAuthor(ctx, viewer.UserID())
	if err != nil {
		return nil, fmt.Errorf("list by author: %w", err)
	}

	resp := &model.DashboardResponse{Published: []model.Post{}, Drafts: []model.Post{}}
	q = strings.ToLower(strings.TrimSpace(q))
	for _, p := range posts {
		if q != "" && !matchesSearch(p, q) {
			continue
		}
		p.TagStyles = tagstyle.Styles(p.Tags)
		if p.IsDraft() {
			if tab != TabPublished {
				resp.Drafts = append(resp.Drafts, p)
			}
			continue
		}
		if tab != TabDrafts {
			resp.Published = append(resp.Published, p)
		}
	}
	return resp, nil
}

func matchesSearch(p model.Post, q string) bool {
	if strings.Contains(strings.ToLower(p.Title), q) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// decorate attaches authors, per-viewer flags and tag styles in place.
func (s *PostService) decorate(ctx context.Context, viewer auth.Context, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]string, len(posts))
	authorIDs := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		authorIDs[i] = p.AuthorID
	}

	authors, err := s.users.Summaries(ctx, authorIDs)
	if err != nil {
		return err
	}

	var liked, bookmarked map[string]bool
	if viewer.IsAuthenticated() {
		if liked, err = s.reactionRepo.Has(ctx, model.ReactionLike, ids, viewer.UserID()); err != nil {
			log.Warnf("[PostService] Failed to check like status: %v", err)
		}
		if bookmarked, err = s.reactionRepo.Has(ctx, model.ReactionBookmark, ids, viewer.UserID()); err != nil {
			log.Warnf("[PostService] Failed to check bookmark status: %v", err)
		}
	}

	for i := range posts {
		if a, ok := authors[posts[i].AuthorID]; ok {
			posts[i].Author = &a
		}
		posts[i].IsLiked = liked[posts[i].ID]
		posts[i].IsBookmarked = bookmarked[posts[i].ID]
		posts[i].TagStyles = tagstyle.Styles(posts[i].Tags)
	}
	return nil
}

// =============================================================================
// Writing
// =============================================================================

// Delete removes the viewer's post immediately and for good.
func (s *PostService) Delete(ctx context.Context, viewer auth.Context, postID string, notes notify.Sink) error {
	if !viewer.IsAuthenticated() {
		return model.ErrAuthRequired
	}

	var cover *string
	if s.media != nil {
		if post, err := s.postRepo.GetByID(ctx, postID); err == nil {
			cover = post.CoverImage
		}
	}

	if err := s.postRepo.Delete(ctx, postID, viewer.UserID()); err != nil {
		return err
	}
	s.sessions.Close(postID)

	if cover != nil {
		if err := s.media.DeleteCover(ctx, *cover); err != nil {
			log.Warnf("[PostService] Failed to delete cover: post=%s err=%v", postID, err)
		}
	}

	event := queue.NewPostDeletedEvent(postID, viewer.UserID())
	if _, err := s.publisher.Publish(ctx, queue.StreamFeed, event); err != nil {
		log.Warnf("[PostService] Failed to publish PostDeleted event: post=%s err=%v", postID, err)
	}

	log.Infof("[PostService] Delete OK: post=%s user=%s", postID, viewer.UserID())
	notifyOrDiscard(notes).Success(model.MsgPostDeleted)
	return nil
}

// ToggleReaction flips the viewer's like or bookmark on a published post.
func (s *PostService) ToggleReaction(ctx context.Context, viewer auth.Context, kind model.ReactionKind, postID string, notes notify.Sink) (*model.ToggleResponse, error) {
	notes = notifyOrDiscard(notes)
	if !kind.Valid() {
		return nil, model.ErrInvalidReactionKey
	}
	if !viewer.IsAuthenticated() {
		if kind == model.ReactionLike {
			notes.Error(model.MsgSignInToLikePost)
		} else {
			notes.Error(model.MsgSignInToSave)
		}
		return nil, model.ErrAuthRequired
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.IsDraft() {
		return nil, model.ErrPostNotFound
	}

	active, count, err := s.reactionRepo.Toggle(ctx, kind, postID, viewer.UserID())
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			return nil, err
		}
		if kind == model.ReactionLike {
			notes.Error(model.MsgLikeFailed)
		} else {
			notes.Error(model.MsgSaveFailed)
		}
		return nil, fmt.Errorf("toggle %s: %w", kind, err)
	}

	if kind == model.ReactionBookmark {
		if active {
			notes.Success(model.MsgBookmarkAdded)
		} else {
			notes.Success(model.MsgBookmarkRemoved)
		}
	}
	return &model.ToggleResponse{Active: active, Count: count}, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return model.DefaultFeedLimit
	}
	if limit > model.MaxFeedLimit {
		return model.MaxFeedLimit
	}
	return limit
}

func notifyOrDiscard(s notify.Sink) notify.Sink {
	if s == nil {
		return notify.Discard
	}
	return s
}
