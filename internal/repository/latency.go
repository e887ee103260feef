package repository

import (
	"context"
	"time"

	"inkcircle/internal/model"
)

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type latencyPostRepository struct {
	PostRepository
	delay time.Duration
}

// WithPostLatency delays every Save by delay, to make the saving state
// observable against a fast local store.
func WithPostLatency(repo PostRepository, delay time.Duration) PostRepository {
	if delay <= 0 {
		return repo
	}
	return &latencyPostRepository{PostRepository: repo, delay: delay}
}

func (r *latencyPostRepository) Save(ctx context.Context, p model.Post) error {
	if err := wait(ctx, r.delay); err != nil {
		return err
	}
	return r.PostRepository.Save(ctx, p)
}

type latencyCommentRepository struct {
	CommentRepository
	delay time.Duration
}

// WithCommentLatency delays every Create by delay.
func WithCommentLatency(repo CommentRepository, delay time.Duration) CommentRepository {
	if delay <= 0 {
		return repo
	}
	return &latencyCommentRepository{CommentRepository: repo, delay: delay}
}

func (r *latencyCommentRepository) Create(ctx context.Context, c model.Comment) error {
	if err := wait(ctx, r.delay); err != nil {
		return err
	}
	return r.CommentRepository.Create(ctx, c)
}
