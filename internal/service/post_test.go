package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkcircle/internal/auth"
	"inkcircle/internal/model"
	"inkcircle/internal/notify"
	"inkcircle/internal/queue"
	"inkcircle/internal/repository"
)

var (
	alex  = model.UserSummary{ID: "u1", Name: "Alex Johnson", Initials: "AJ"}
	sarah = model.UserSummary{ID: "u2", Name: "Sarah Chen", Initials: "SC"}
	day   = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
)

func publishedPost(id, authorID string, at time.Time, tags ...string) model.Post {
	p := model.NewDraft(id, authorID, at)
	p.Title = "Post " + id
	p.Content = "<p>body of " + id + "</p>"
	p.Tags = tags
	_ = p.Publish(at)
	return p
}

func draftPost(id, authorID string, at time.Time) model.Post {
	p := model.NewDraft(id, authorID, at)
	p.Title = "Draft " + id
	return p
}

type postFixture struct {
	svc       *PostService
	posts     *mockPostRepository
	reactions *mockReactionRepository
	publisher *mockPublisher
}

func newPostFixture(posts ...model.Post) *postFixture {
	f := &postFixture{
		posts:     newMockPostRepository(posts...),
		reactions: &mockReactionRepository{},
		publisher: &mockPublisher{},
	}
	users := NewUserService(&mockUserRepository{users: map[string]model.User{
		"u1": {ID: "u1", Name: alex.Name},
		"u2": {ID: "u2", Name: sarah.Name},
	}})
	f.svc = NewPostService(f.posts, f.reactions, users, f.publisher, PostServiceConfig{})
	f.svc.now = func() time.Time { return day.Add(48 * time.Hour) }
	return f
}

// =============================================================================
// COMPOSER TESTS
// =============================================================================

func TestPostService_OpenDraft(t *testing.T) {
	f := newPostFixture()
	ctx := context.Background()

	if _, err := f.svc.OpenDraft(ctx, auth.Anonymous()); !errors.Is(err, model.ErrAuthRequired) {
		t.Fatalf("anonymous open: got %v, want ErrAuthRequired", err)
	}

	sess, err := f.svc.OpenDraft(ctx, auth.Authenticated(alex))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	again, err := f.svc.Session(ctx, auth.Authenticated(alex), sess.ID())
	if err != nil || again != sess {
		t.Errorf("Session should return the open session, got %v err=%v", again, err)
	}
	if _, err := f.svc.Session(ctx, auth.Authenticated(sarah), sess.ID()); !errors.Is(err, model.ErrNotPostOwner) {
		t.Errorf("other user: got %v, want ErrNotPostOwner", err)
	}
	if len(f.posts.saved) != 0 {
		t.Error("opening a draft must not persist it")
	}
}

func TestPostService_Session_ReopensFromStorage(t *testing.T) {
	f := newPostFixture(draftPost("d1", "u1", day), publishedPost("p1", "u1", day))
	ctx := context.Background()

	sess, err := f.svc.Session(ctx, auth.Authenticated(alex), "d1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if sess.Snapshot().Title != "Draft d1" {
		t.Errorf("title = %q", sess.Snapshot().Title)
	}

	if _, err := f.svc.Session(ctx, auth.Authenticated(alex), "p1"); !errors.Is(err, model.ErrAlreadyPublished) {
		t.Errorf("published post: got %v, want ErrAlreadyPublished", err)
	}
	if _, err := f.svc.Session(ctx, auth.Authenticated(alex), "missing"); !errors.Is(err, model.ErrPostNotFound) {
		t.Errorf("missing post: got %v, want ErrPostNotFound", err)
	}
}

func TestPostService_EditAndPublish(t *testing.T) {
	// ARRANGE
	f := newPostFixture()
	ctx := context.Background()
	a := auth.Authenticated(alex)
	sess, _ := f.svc.OpenDraft(ctx, a)

	title := "  Hello Go  "
	_, rejected, err := f.svc.UpdateDraft(ctx, a, sess.ID(), model.UpdateDraftRequest{
		Title:   &title,
		AddTags: []string{"Go", "Backend", "APIs", "Testing", "Design", "Overflow"},
	})
	if err != nil {
		t.Fatalf("UpdateDraft: %v", err)
	}
	if len(rejected) != 1 || rejected[0] != "Overflow" {
		t.Errorf("rejected = %v, want [Overflow]", rejected)
	}

	text := "Hello world"
	if _, err := f.svc.ApplyCommand(ctx, a, sess.ID(), model.CommandRequest{InsertText: &text}); err != nil {
		t.Fatalf("ApplyCommand insert: %v", err)
	}
	if _, err := f.svc.ApplyCommand(ctx, a, sess.ID(), model.CommandRequest{SelectAll: true, Command: "h1"}); err != nil {
		t.Fatalf("ApplyCommand h1: %v", err)
	}

	// ACT
	_, err = f.svc.Publish(ctx, a, sess.ID())

	// ASSERT
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(f.posts.saved) != 1 {
		t.Fatalf("saved %d times, want 1", len(f.posts.saved))
	}
	saved := f.posts.saved[0]
	if saved.State != model.StatePublished || saved.PublishedAt == nil {
		t.Errorf("saved state = %s", saved.State)
	}
	if saved.Title != "Hello Go" || saved.Content != "<h1>Hello world</h1>" {
		t.Errorf("saved title/content = %q / %q", saved.Title, saved.Content)
	}
	if saved.Author != nil || saved.TagStyles != nil {
		t.Error("derived fields must not be persisted")
	}

	if len(f.publisher.events) != 1 || f.publisher.events[0].Type != queue.EventPostPublished {
		t.Fatalf("events = %+v, want one PostPublished", f.publisher.events)
	}

	notices, redirect := sess.Drain()
	if len(notices) != 1 || notices[0].Message != model.MsgPostPublished {
		t.Errorf("notices = %+v", notices)
	}
	if redirect == nil || *redirect != model.DashboardPath {
		t.Errorf("redirect = %v, want %s", redirect, model.DashboardPath)
	}

	if _, err := f.svc.Session(ctx, a, sess.ID()); !errors.Is(err, model.ErrAlreadyPublished) {
		t.Errorf("session after publish: got %v, want ErrAlreadyPublished", err)
	}
}

func TestPostService_Publish_SurvivesCancelledRequest(t *testing.T) {
	// ARRANGE: a slow store and a request that goes away mid-save
	f := newPostFixture()
	f.svc.postRepo = repository.WithPostLatency(f.posts, 100*time.Millisecond)
	a := auth.Authenticated(alex)
	sess, _ := f.svc.OpenDraft(context.Background(), a)

	title := "Still published"
	text := "x"
	f.svc.UpdateDraft(context.Background(), a, sess.ID(), model.UpdateDraftRequest{Title: &title})
	f.svc.ApplyCommand(context.Background(), a, sess.ID(), model.CommandRequest{InsertText: &text})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// ACT
	_, err := f.svc.Publish(ctx, a, sess.ID())

	// ASSERT
	if err != nil {
		t.Fatalf("expected publish to finish, got: %v", err)
	}
	if len(f.posts.saved) != 1 || f.posts.saved[0].State != model.StatePublished {
		t.Fatalf("saved = %+v, want one published post", f.posts.saved)
	}
	notices, _ := sess.Drain()
	if len(notices) != 1 || notices[0].Message != model.MsgPostPublished {
		t.Errorf("notices = %+v, want [%s]", notices, model.MsgPostPublished)
	}
}

func TestPostService_Publish_ValidationFailure(t *testing.T) {
	f := newPostFixture()
	ctx := context.Background()
	a := auth.Authenticated(alex)
	sess, _ := f.svc.OpenDraft(ctx, a)

	_, err := f.svc.Publish(ctx, a, sess.ID())

	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
	if verr.Message("title") != model.MsgTitleRequired || verr.Message("content") != model.MsgContentRequired {
		t.Errorf("fields = %+v", verr.Fields)
	}
	notices, redirect := sess.Drain()
	if len(notices) != 1 || notices[0].Message != model.MsgFixErrors {
		t.Errorf("notices = %+v, want a single fix-errors notice", notices)
	}
	if redirect != nil || len(f.posts.saved) != 0 || len(f.publisher.events) != 0 {
		t.Error("a failed validation must not save, redirect or publish")
	}
}

func TestPostService_SaveDraft(t *testing.T) {
	f := newPostFixture()
	ctx := context.Background()
	a := auth.Authenticated(alex)
	sess, _ := f.svc.OpenDraft(ctx, a)

	if _, err := f.svc.SaveDraft(ctx, a, sess.ID()); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if len(f.posts.saved) != 1 || f.posts.saved[0].State != model.StateDraft {
		t.Errorf("saved = %+v", f.posts.saved)
	}
	if len(f.publisher.events) != 0 {
		t.Error("drafts do not emit feed events")
	}
	notices, _ := sess.Drain()
	if len(notices) != 1 || notices[0].Message != model.MsgDraftSaved {
		t.Errorf("notices = %+v", notices)
	}
}

func TestPostService_SaveDraft_PersistFailure(t *testing.T) {
	f := newPostFixture()
	f.posts.saveFn = func(ctx context.Context, post model.Post) error { return errors.New("disk full") }
	ctx := context.Background()
	a := auth.Authenticated(alex)
	sess, _ := f.svc.OpenDraft(ctx, a)

	_, err := f.svc.SaveDraft(ctx, a, sess.ID())

	if err == nil {
		t.Fatal("expected an error")
	}
	notices, redirect := sess.Drain()
	if len(notices) != 1 || notices[0].Message != model.MsgSaveFailed {
		t.Errorf("notices = %+v", notices)
	}
	if redirect != nil {
		t.Error("a failed save must not redirect")
	}
	if sess.Saving() {
		t.Error("saving flag must be cleared after a failure")
	}
}

func TestPostService_ApplyCommand_Unknown(t *testing.T) {
	f := newPostFixture()
	ctx := context.Background()
	a := auth.Authenticated(alex)
	sess, _ := f.svc.OpenDraft(ctx, a)

	_, err := f.svc.ApplyCommand(ctx, a, sess.ID(), model.CommandRequest{Command: "strike"})

	if !errors.Is(err, model.ErrUnknownCommand) {
		t.Errorf("got %v, want ErrUnknownCommand", err)
	}
}

func TestPostService_UpdateDraft_InvalidCover(t *testing.T) {
	f := newPostFixture()
	ctx := context.Background()
	a := auth.Authenticated(alex)
	sess, _ := f.svc.OpenDraft(ctx, a)

	bad := "ftp://example.com/x.png"
	_, _, err := f.svc.UpdateDraft(ctx, a, sess.ID(), model.UpdateDraftRequest{CoverImage: &bad})

	if !errors.Is(err, model.ErrInvalidCoverImage) {
		t.Errorf("got %v, want ErrInvalidCoverImage", err)
	}
}

// =============================================================================
// FEED + READ TESTS
// =============================================================================

func feedPosts() []model.Post {
	return []model.Post{
		publishedPost("p1", "u1", day, "Design", "CSS", "Figma", "Extra"),
		publishedPost("p2", "u2", day.Add(time.Hour), "JavaScript"),
		publishedPost("p3", "u1", day.Add(2*time.Hour), "Development", "Go"),
		draftPost("d1", "u1", day.Add(3*time.Hour)),
	}
}

func TestPostService_ListPublished(t *testing.T) {
	f := newPostFixture(feedPosts()...)

	resp, err := f.svc.ListPublished(context.Background(), auth.Anonymous(), "", 10)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if resp.Featured == nil || resp.Featured.ID != "p3" {
		t.Fatalf("featured = %+v, want p3", resp.Featured)
	}
	if len(resp.Posts) != 2 || resp.Posts[0].ID != "p2" || resp.Posts[1].ID != "p1" {
		t.Fatalf("posts = %+v, want [p2 p1]", resp.Posts)
	}
	card := resp.Posts[1]
	if len(card.Tags) != model.CardTagLimit || len(card.TagStyles) != model.CardTagLimit {
		t.Errorf("card tags = %v styles = %v", card.Tags, card.TagStyles)
	}
	if card.Content != "" {
		t.Error("cards do not carry the body")
	}
	if card.Author == nil || card.Author.Initials != "AJ" {
		t.Errorf("author = %+v", card.Author)
	}
	if len(resp.Categories) == 0 || resp.Categories[0] != model.CategoryAll {
		t.Errorf("categories = %v", resp.Categories)
	}
}

func TestPostService_ListPublished_Category(t *testing.T) {
	f := newPostFixture(feedPosts()...)

	resp, err := f.svc.ListPublished(context.Background(), auth.Anonymous(), "design", 10)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if resp.Featured == nil || resp.Featured.ID != "p1" || len(resp.Posts) != 0 {
		t.Errorf("featured = %+v posts = %+v, want only p1", resp.Featured, resp.Posts)
	}

	resp, _ = f.svc.ListPublished(context.Background(), auth.Anonymous(), "Cooking", 10)
	if resp.Featured != nil || len(resp.Posts) != 0 {
		t.Error("no post should match an unused category")
	}
}

func TestPostService_ListPublished_FeedCache(t *testing.T) {
	f := newPostFixture(feedPosts()...)
	feed := &mockFeedCache{}
	f.svc.WithFeedCache(feed)
	ctx := context.Background()

	// cold: storage is read and the cache warmed
	resp, err := f.svc.ListPublished(ctx, auth.Anonymous(), "", 10)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !feed.warm || len(feed.warmed) != 3 {
		t.Fatalf("cache warmed with %d posts, want 3", len(feed.warmed))
	}
	if resp.Featured.ID != "p3" {
		t.Errorf("featured = %s, want p3", resp.Featured.ID)
	}

	// warm: ids come from the cache
	feed.ids = []string{"p2"}
	listCalls := f.posts.listCalls
	resp, _ = f.svc.ListPublished(ctx, auth.Anonymous(), "", 10)
	if f.posts.listCalls != listCalls || f.posts.byIDsCalls != 1 {
		t.Errorf("warm read should use GetByIDs only (list=%d byIDs=%d)", f.posts.listCalls-listCalls, f.posts.byIDsCalls)
	}
	if resp.Featured == nil || resp.Featured.ID != "p2" {
		t.Errorf("featured = %+v, want p2", resp.Featured)
	}
}

func TestPostService_GetPost(t *testing.T) {
	f := newPostFixture(feedPosts()...)
	f.reactions.has = map[model.ReactionKind]map[string]bool{
		model.ReactionLike: {"p1": true},
	}
	ctx := context.Background()

	post, err := f.svc.GetPost(ctx, auth.Authenticated(sarah), "p1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !post.IsLiked || post.IsBookmarked {
		t.Errorf("liked=%v bookmarked=%v", post.IsLiked, post.IsBookmarked)
	}
	if len(post.Tags) != 4 {
		t.Error("the post page shows every tag")
	}

	if _, err := f.svc.GetPost(ctx, auth.Authenticated(sarah), "d1"); !errors.Is(err, model.ErrPostNotFound) {
		t.Errorf("someone else's draft: got %v, want ErrPostNotFound", err)
	}
	if _, err := f.svc.GetPost(ctx, auth.Authenticated(alex), "d1"); err != nil {
		t.Errorf("own draft: %v", err)
	}
}

func TestPostService_Dashboard(t *testing.T) {
	f := newPostFixture(feedPosts()...)
	ctx := context.Background()
	a := auth.Authenticated(alex)

	if _, err := f.svc.Dashboard(ctx, auth.Anonymous(), "", ""); !errors.Is(err, model.ErrAuthRequired) {
		t.Errorf("anonymous: got %v", err)
	}

	resp, _ := f.svc.Dashboard(ctx, a, "", "")
	if len(resp.Published) != 2 || len(resp.Drafts) != 1 {
		t.Errorf("published=%d drafts=%d, want 2/1", len(resp.Published), len(resp.Drafts))
	}

	resp, _ = f.svc.Dashboard(ctx, a, TabDrafts, "")
	if len(resp.Published) != 0 || len(resp.Drafts) != 1 {
		t.Errorf("drafts tab: published=%d drafts=%d", len(resp.Published), len(resp.Drafts))
	}

	resp, _ = f.svc.Dashboard(ctx, a, "", "FIGMA")
	if len(resp.Published) != 1 || resp.Published[0].ID != "p1" || len(resp.Drafts) != 0 {
		t.Errorf("tag search: %+v", resp)
	}

	resp, _ = f.svc.Dashboard(ctx, a, "", "draft d1")
	if len(resp.Drafts) != 1 || len(resp.Published) != 0 {
		t.Errorf("title search: %+v", resp)
	}
}

// =============================================================================
// WRITE TESTS
// =============================================================================

func TestPostService_Delete(t *testing.T) {
	f := newPostFixture(feedPosts()...)
	ctx := context.Background()
	notes := notify.NewRecorder()

	if err := f.svc.Delete(ctx, auth.Authenticated(sarah), "p1", notes); !errors.Is(err, model.ErrNotPostOwner) {
		t.Fatalf("non-owner: got %v, want ErrNotPostOwner", err)
	}
	if len(notes.Notices()) != 0 || len(f.publisher.events) != 0 {
		t.Error("a refused delete must not notify or publish")
	}

	if err := f.svc.Delete(ctx, auth.Authenticated(alex), "p1", notes); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := f.posts.GetByID(ctx, "p1"); !errors.Is(err, model.ErrPostNotFound) {
		t.Error("post should be gone")
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].Type != queue.EventPostDeleted {
		t.Errorf("events = %+v", f.publisher.events)
	}
	if got := notes.Notices(); len(got) != 1 || got[0].Message != model.MsgPostDeleted {
		t.Errorf("notices = %+v", got)
	}
}

func TestPostService_Delete_ClosesSession(t *testing.T) {
	f := newPostFixture(draftPost("d1", "u1", day))
	ctx := context.Background()
	a := auth.Authenticated(alex)

	if _, err := f.svc.Session(ctx, a, "d1"); err != nil {
		t.Fatalf("Session: %v", err)
	}
	if err := f.svc.Delete(ctx, a, "d1", nil); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if f.svc.sessions.Len() != 0 {
		t.Error("deleting a post closes its composer")
	}
}

func TestPostService_ToggleReaction(t *testing.T) {
	f := newPostFixture(feedPosts()...)
	ctx := context.Background()

	t.Run("anonymous like", func(t *testing.T) {
		notes := notify.NewRecorder()
		_, err := f.svc.ToggleReaction(ctx, auth.Anonymous(), model.ReactionLike, "p1", notes)
		if !errors.Is(err, model.ErrAuthRequired) {
			t.Fatalf("got %v", err)
		}
		if got := notes.Notices(); len(got) != 1 || got[0].Message != model.MsgSignInToLikePost {
			t.Errorf("notices = %+v", got)
		}
	})

	t.Run("anonymous bookmark", func(t *testing.T) {
		notes := notify.NewRecorder()
		f.svc.ToggleReaction(ctx, auth.Anonymous(), model.ReactionBookmark, "p1", notes)
		if got := notes.Notices(); len(got) != 1 || got[0].Message != model.MsgSignInToSave {
			t.Errorf("notices = %+v", got)
		}
	})

	t.Run("bookmark on", func(t *testing.T) {
		notes := notify.NewRecorder()
		resp, err := f.svc.ToggleReaction(ctx, auth.Authenticated(sarah), model.ReactionBookmark, "p1", notes)
		if err != nil {
			t.Fatalf("got %v", err)
		}
		if !resp.Active {
			t.Error("expected active")
		}
		if got := notes.Notices(); len(got) != 1 || got[0].Message != model.MsgBookmarkAdded {
			t.Errorf("notices = %+v", got)
		}
	})

	t.Run("like failure", func(t *testing.T) {
		f.reactions.toggleFn = func(ctx context.Context, kind model.ReactionKind, postID, userID string) (bool, int, error) {
			return false, 0, errors.New("timeout")
		}
		defer func() { f.reactions.toggleFn = nil }()
		notes := notify.NewRecorder()
		if _, err := f.svc.ToggleReaction(ctx, auth.Authenticated(sarah), model.ReactionLike, "p1", notes); err == nil {
			t.Fatal("expected an error")
		}
		if got := notes.Notices(); len(got) != 1 || got[0].Message != model.MsgLikeFailed {
			t.Errorf("notices = %+v", got)
		}
	})

	t.Run("draft and bad kind", func(t *testing.T) {
		if _, err := f.svc.ToggleReaction(ctx, auth.Authenticated(sarah), model.ReactionLike, "d1", nil); !errors.Is(err, model.ErrPostNotFound) {
			t.Errorf("draft: got %v", err)
		}
		if _, err := f.svc.ToggleReaction(ctx, auth.Authenticated(sarah), "share", "p1", nil); !errors.Is(err, model.ErrInvalidReactionKey) {
			t.Errorf("kind: got %v", err)
		}
	})
}

func TestPostService_PublishedScores(t *testing.T) {
	f := newPostFixture(feedPosts()...)

	scores, err := f.svc.PublishedScores(context.Background(), 2)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(scores) != 2 || scores[0].PostID != "p3" || scores[0].Timestamp != day.Add(2*time.Hour).Unix() {
		t.Errorf("scores = %+v", scores)
	}
}
