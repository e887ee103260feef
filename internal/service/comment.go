package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"inkcircle/internal/auth"
	"inkcircle/internal/comments"
	"inkcircle/internal/model"
	"inkcircle/internal/notify"
	"inkcircle/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	users       *UserService
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	users *UserService,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		users:       users,
	}
}

// List returns the thread of a published post, newest first.
func (s *CommentService) List(ctx context.Context, viewer auth.Context, postID string) (*model.CommentListResponse, error) {
	section, err := s.section(ctx, viewer, postID, nil)
	if err != nil {
		return nil, err
	}
	list := section.Comments(viewer.User())
	return &model.CommentListResponse{Comments: list, Count: len(list)}, nil
}

// Create submits a comment as the viewer. Anonymous viewers and empty
// content are reported through notes as well as the returned error.
func (s *CommentService) Create(ctx context.Context, viewer auth.Context, postID, content string, notes notify.Sink) (model.Comment, error) {
	section, err := s.section(ctx, viewer, postID, notes)
	if err != nil {
		return model.Comment{}, err
	}
	section.SetInput(content)

	c, err := section.Submit(ctx, viewer.User())
	if err != nil {
		return model.Comment{}, err
	}
	log.Infof("[CommentService] Create OK: post=%s comment=%s user=%s", postID, c.ID, viewer.UserID())
	return c, nil
}

// ToggleLike flips the viewer's like on a comment.
func (s *CommentService) ToggleLike(ctx context.Context, viewer auth.Context, postID, commentID string, notes notify.Sink) (model.Comment, error) {
	section, err := s.section(ctx, viewer, postID, notes)
	if err != nil {
		return model.Comment{}, err
	}
	return section.ToggleLike(ctx, commentID, viewer.User())
}

// section loads a post's comments into a Section backed by the repository.
func (s *CommentService) section(ctx context.Context, viewer auth.Context, postID string, notes notify.Sink) (*comments.Section, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.IsDraft() {
		return nil, model.ErrPostNotFound
	}

	existing, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	authorIDs := make([]string, len(existing))
	for i, c := range existing {
		authorIDs[i] = c.AuthorID
	}
	authors, err := s.users.Summaries(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if a, ok := authors[existing[i].AuthorID]; ok {
			existing[i].Author = &a
		}
	}

	store := comments.NewStore(postID, existing)
	if viewer.IsAuthenticated() {
		liked, err := s.commentRepo.LikedBy(ctx, postID, viewer.UserID())
		if err != nil {
			return nil, fmt.Errorf("load comment likes: %w", err)
		}
		for _, id := range liked {
			store.MarkLiked(id, viewer.UserID())
		}
	}

	return comments.NewSection(store, &commentPersister{repo: s.commentRepo}, notes), nil
}

// commentPersister is the comment section's persistence port.
type commentPersister struct {
	repo repository.CommentRepository
}

func (p *commentPersister) CreateComment(ctx context.Context, c model.Comment) error {
	c.Author = nil
	c.LikedByViewer = false
	return p.repo.Create(ctx, c)
}

func (p *commentPersister) SetCommentLike(ctx context.Context, commentID, userID string, liked bool) error {
	return p.repo.SetLike(ctx, commentID, userID, liked)
}
