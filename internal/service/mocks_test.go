package service

import (
	"context"
	"sync"
	"time"

	"inkcircle/internal/cache"
	"inkcircle/internal/model"
	"inkcircle/internal/queue"
)

// =============================================================================
// MOCK REPOSITORIES
// =============================================================================
//
// Each mock exposes function fields so a test overrides only the calls it
// cares about. Unset fields fall back to an in-memory default.

type mockUserRepository struct {
	createFn     func(ctx context.Context, user *model.User) error
	getByIDFn    func(ctx context.Context, id string) (*model.User, error)
	getByEmailFn func(ctx context.Context, email string) (*model.User, error)

	users       map[string]model.User
	createCalls []*model.User
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.createCalls = append(m.createCalls, user)
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]model.User, error) {
	out := make(map[string]model.User)
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type mockRefreshTokenRepository struct {
	mu      sync.Mutex
	tokens  map[string]*model.RefreshToken // by hash
	revoked []string
	all     []string

	revokeAllFn func(ctx context.Context, userID string) error
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*model.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := *token
	t.CreatedAt = time.Now()
	m.tokens[token.TokenHash] = &t
	return nil
}

func (m *mockRefreshTokenRepository) FindByTokenHash(ctx context.Context, hash string) (*model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[hash]
	if !ok {
		return nil, model.ErrRefreshTokenNotFound
	}
	out := *t
	return &out, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, id string, replacedBy *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range m.tokens {
		if t.ID == id {
			t.RevokedAt = &now
			t.ReplacedBy = replacedBy
		}
	}
	m.revoked = append(m.revoked, id)
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	if m.revokeAllFn != nil {
		return m.revokeAllFn(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range m.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	m.all = append(m.all, userID)
	return nil
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

type mockPostRepository struct {
	saveFn   func(ctx context.Context, post model.Post) error
	deleteFn func(ctx context.Context, id, authorID string) error

	posts      map[string]model.Post
	saved      []model.Post
	listCalls  int
	byIDsCalls int
}

func newMockPostRepository(posts ...model.Post) *mockPostRepository {
	m := &mockPostRepository{posts: make(map[string]model.Post)}
	for _, p := range posts {
		m.posts[p.ID] = p
	}
	return m
}

func (m *mockPostRepository) Save(ctx context.Context, post model.Post) error {
	m.saved = append(m.saved, post)
	if m.saveFn != nil {
		return m.saveFn(ctx, post)
	}
	m.posts[post.ID] = post.Clone()
	return nil
}

func (m *mockPostRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	out := p.Clone()
	return &out, nil
}

func (m *mockPostRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Post, error) {
	m.byIDsCalls++
	var out []model.Post
	for _, id := range ids {
		if p, ok := m.posts[id]; ok {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (m *mockPostRepository) Delete(ctx context.Context, id, authorID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, authorID)
	}
	p, ok := m.posts[id]
	if !ok {
		return model.ErrPostNotFound
	}
	if p.AuthorID != authorID {
		return model.ErrNotPostOwner
	}
	delete(m.posts, id)
	return nil
}

// ListPublished orders by PublishedAt, newest first.
func (m *mockPostRepository) ListPublished(ctx context.Context, limit int) ([]model.Post, error) {
	m.listCalls++
	var out []model.Post
	for _, p := range m.posts {
		if !p.IsDraft() {
			out = append(out, p.Clone())
		}
	}
	sortPosts(out, func(p model.Post) time.Time { return *p.PublishedAt })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockPostRepository) ListByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	var out []model.Post
	for _, p := range m.posts {
		if p.AuthorID == authorID {
			out = append(out, p.Clone())
		}
	}
	sortPosts(out, func(p model.Post) time.Time { return p.UpdatedAt })
	return out, nil
}

func (m *mockPostRepository) IncrementCommentCount(ctx context.Context, postID string, delta int) error {
	p, ok := m.posts[postID]
	if !ok {
		return model.ErrPostNotFound
	}
	p.CommentCount += delta
	m.posts[postID] = p
	return nil
}

func sortPosts(posts []model.Post, key func(model.Post) time.Time) {
	for i := 1; i < len(posts); i++ {
		for j := i; j > 0 && key(posts[j]).After(key(posts[j-1])); j-- {
			posts[j], posts[j-1] = posts[j-1], posts[j]
		}
	}
}

type mockCommentRepository struct {
	createFn  func(ctx context.Context, c model.Comment) error
	setLikeFn func(ctx context.Context, commentID, userID string, liked bool) error

	comments []model.Comment // newest first
	likes    map[string]map[string]bool
	created  []model.Comment
}

func (m *mockCommentRepository) Create(ctx context.Context, c model.Comment) error {
	m.created = append(m.created, c)
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	m.comments = append([]model.Comment{c}, m.comments...)
	return nil
}

func (m *mockCommentRepository) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	var out []model.Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCommentRepository) SetLike(ctx context.Context, commentID, userID string, liked bool) error {
	if m.setLikeFn != nil {
		return m.setLikeFn(ctx, commentID, userID, liked)
	}
	if m.likes == nil {
		m.likes = make(map[string]map[string]bool)
	}
	if m.likes[commentID] == nil {
		m.likes[commentID] = make(map[string]bool)
	}
	m.likes[commentID][userID] = liked
	return nil
}

func (m *mockCommentRepository) LikedBy(ctx context.Context, postID, userID string) ([]string, error) {
	var out []string
	for commentID, users := range m.likes {
		if users[userID] {
			out = append(out, commentID)
		}
	}
	return out, nil
}

type mockReactionRepository struct {
	toggleFn func(ctx context.Context, kind model.ReactionKind, postID, userID string) (bool, int, error)
	has      map[model.ReactionKind]map[string]bool
}

func (m *mockReactionRepository) Toggle(ctx context.Context, kind model.ReactionKind, postID, userID string) (bool, int, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, kind, postID, userID)
	}
	return true, 1, nil
}

func (m *mockReactionRepository) Has(ctx context.Context, kind model.ReactionKind, postIDs []string, userID string) (map[string]bool, error) {
	return m.has[kind], nil
}

// =============================================================================
// MOCK QUEUE + CACHE
// =============================================================================

type mockPublisher struct {
	events []queue.FeedEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.FeedEvent) (string, error) {
	m.events = append(m.events, event)
	return "1-0", m.err
}

type mockFeedCache struct {
	ids    []string
	warm   bool
	warmed []cache.PostScore
}

func (m *mockFeedCache) AddPost(ctx context.Context, postID string, timestamp int64) error { return nil }
func (m *mockFeedCache) RemovePost(ctx context.Context, postID string) error                { return nil }

func (m *mockFeedCache) GetFeed(ctx context.Context, limit int) ([]string, error) {
	if len(m.ids) > limit {
		return m.ids[:limit], nil
	}
	return m.ids, nil
}

func (m *mockFeedCache) WarmCache(ctx context.Context, posts []cache.PostScore) error {
	m.warm = true
	m.warmed = posts
	return nil
}

func (m *mockFeedCache) Size(ctx context.Context) (int64, error) { return int64(len(m.ids)), nil }
func (m *mockFeedCache) Exists(ctx context.Context) (bool, error) { return m.warm, nil }
