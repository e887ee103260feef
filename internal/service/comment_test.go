package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkcircle/internal/auth"
	"inkcircle/internal/model"
	"inkcircle/internal/notify"
)

func newCommentFixture() (*CommentService, *mockCommentRepository) {
	posts := newMockPostRepository(
		publishedPost("p1", "u1", day),
		draftPost("d1", "u1", day),
	)
	repo := &mockCommentRepository{
		comments: []model.Comment{
			{ID: "c2", PostID: "p1", AuthorID: "u2", Content: "Second", LikeCount: 1, CreatedAt: day.Add(2 * time.Minute)},
			{ID: "c1", PostID: "p1", AuthorID: "u1", Content: "First", CreatedAt: day.Add(time.Minute)},
		},
		likes: map[string]map[string]bool{"c2": {"u1": true}},
	}
	users := NewUserService(&mockUserRepository{users: map[string]model.User{
		"u1": {ID: "u1", Name: alex.Name},
		"u2": {ID: "u2", Name: sarah.Name},
	}})
	return NewCommentService(repo, posts, users), repo
}

// =============================================================================
// LIST TESTS
// =============================================================================

func TestCommentService_List(t *testing.T) {
	svc, _ := newCommentFixture()
	ctx := context.Background()

	resp, err := svc.List(ctx, auth.Authenticated(alex), "p1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if resp.Count != 2 || resp.Comments[0].ID != "c2" {
		t.Fatalf("comments = %+v, want newest first", resp.Comments)
	}
	if !resp.Comments[0].LikedByViewer || resp.Comments[1].LikedByViewer {
		t.Error("liked flags should follow the viewer's likes")
	}
	if resp.Comments[0].Author == nil || resp.Comments[0].Author.Name != sarah.Name {
		t.Errorf("author = %+v", resp.Comments[0].Author)
	}

	anon, _ := svc.List(ctx, auth.Anonymous(), "p1")
	if anon.Comments[0].LikedByViewer {
		t.Error("anonymous viewers like nothing")
	}
}

func TestCommentService_List_HiddenPosts(t *testing.T) {
	svc, _ := newCommentFixture()

	if _, err := svc.List(context.Background(), auth.Authenticated(alex), "d1"); !errors.Is(err, model.ErrPostNotFound) {
		t.Errorf("draft: got %v, want ErrPostNotFound", err)
	}
	if _, err := svc.List(context.Background(), auth.Anonymous(), "nope"); !errors.Is(err, model.ErrPostNotFound) {
		t.Errorf("missing: got %v, want ErrPostNotFound", err)
	}
}

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestCommentService_Create(t *testing.T) {
	// ARRANGE
	svc, repo := newCommentFixture()
	notes := notify.NewRecorder()

	// ACT
	c, err := svc.Create(context.Background(), auth.Authenticated(sarah), "p1", "  Great read!  ", notes)

	// ASSERT
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if c.Content != "Great read!" || c.LikeCount != 0 || c.AuthorID != "u2" {
		t.Errorf("comment = %+v", c)
	}
	if c.Author == nil || c.Author.Name != sarah.Name {
		t.Errorf("author = %+v", c.Author)
	}
	if len(repo.created) != 1 || repo.created[0].Author != nil {
		t.Errorf("persisted = %+v, want one comment without joined author", repo.created)
	}
	if got := notes.Notices(); len(got) != 1 || got[0].Message != model.MsgCommentAdded {
		t.Errorf("notices = %+v", got)
	}

	resp, _ := svc.List(context.Background(), auth.Anonymous(), "p1")
	if resp.Count != 3 || resp.Comments[0].ID != c.ID {
		t.Error("the new comment should lead the thread")
	}
}

func TestCommentService_Create_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		viewer  auth.Context
		content string
		wantErr error
		wantMsg string
	}{
		{"anonymous", auth.Anonymous(), "hello", model.ErrAuthRequired, model.MsgSignInToComment},
		{"blank", auth.Authenticated(sarah), "   ", model.ErrContentRequired, model.MsgCommentEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newCommentFixture()
			notes := notify.NewRecorder()

			_, err := svc.Create(context.Background(), tt.viewer, "p1", tt.content, notes)

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
			if got := notes.Notices(); len(got) != 1 || got[0].Message != tt.wantMsg {
				t.Errorf("notices = %+v, want %q", got, tt.wantMsg)
			}
			if len(repo.created) != 0 {
				t.Error("nothing should be persisted")
			}
		})
	}
}

func TestCommentService_Create_PersistFailure(t *testing.T) {
	svc, repo := newCommentFixture()
	repo.createFn = func(ctx context.Context, c model.Comment) error { return errors.New("connection reset") }
	notes := notify.NewRecorder()

	_, err := svc.Create(context.Background(), auth.Authenticated(sarah), "p1", "hello", notes)

	if err == nil {
		t.Fatal("expected an error")
	}
	if got := notes.Notices(); len(got) != 1 || got[0].Message != model.MsgCommentFailed {
		t.Errorf("notices = %+v", got)
	}
}

// =============================================================================
// LIKE TESTS
// =============================================================================

func TestCommentService_ToggleLike(t *testing.T) {
	svc, repo := newCommentFixture()
	ctx := context.Background()

	c, err := svc.ToggleLike(ctx, auth.Authenticated(alex), "p1", "c2", nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if c.LikedByViewer || c.LikeCount != 0 {
		t.Errorf("unlike: liked=%v count=%d", c.LikedByViewer, c.LikeCount)
	}
	if repo.likes["c2"]["u1"] {
		t.Error("the unlike should be persisted")
	}

	c, err = svc.ToggleLike(ctx, auth.Authenticated(sarah), "p1", "c1", nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !c.LikedByViewer || c.LikeCount != 1 || !repo.likes["c1"]["u2"] {
		t.Errorf("like: liked=%v count=%d", c.LikedByViewer, c.LikeCount)
	}
}

func TestCommentService_ToggleLike_Errors(t *testing.T) {
	svc, _ := newCommentFixture()
	ctx := context.Background()

	notes := notify.NewRecorder()
	if _, err := svc.ToggleLike(ctx, auth.Anonymous(), "p1", "c1", notes); !errors.Is(err, model.ErrAuthRequired) {
		t.Errorf("anonymous: got %v", err)
	}
	if got := notes.Notices(); len(got) != 1 || got[0].Message != model.MsgSignInToLike {
		t.Errorf("notices = %+v", got)
	}

	// an unknown comment is a no-op
	c, err := svc.ToggleLike(ctx, auth.Authenticated(alex), "p1", "missing", nil)
	if err != nil {
		t.Fatalf("unknown comment: got %v, want nil", err)
	}
	if c.ID != "" {
		t.Errorf("unknown comment: got %+v, want zero comment", c)
	}
}
