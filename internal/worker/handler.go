package worker

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"inkcircle/internal/cache"
	"inkcircle/internal/queue"
)

// RebuildLimit is how many published posts a feed rebuild loads.
const RebuildLimit = cache.FeedCacheCap

// PublishedPostsProvider lists published posts for a feed rebuild.
// This abstracts the repository layer so workers don't depend on storage directly.
type PublishedPostsProvider interface {
	// PublishedScores returns up to limit published posts, newest first,
	// as (postID, publishedAt) pairs.
	PublishedScores(ctx context.Context, limit int) ([]cache.PostScore, error)
}

// Handler applies feed events to the published feed cache.
type Handler struct {
	feedCache cache.FeedCache
	posts     PublishedPostsProvider
}

// NewHandler creates a new event handler.
func NewHandler(feedCache cache.FeedCache, posts PublishedPostsProvider) *Handler {
	return &Handler{feedCache: feedCache, posts: posts}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.FeedEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventPostPublished:
		err = h.handlePostPublished(ctx, event)
	case queue.EventPostDeleted:
		err = h.handlePostDeleted(ctx, event)
	case queue.EventFeedRebuild:
		err = h.Rebuild(ctx)
	default:
		log.Warnf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Errorf("[Worker] HandleEvent FAILED: type=%s post=%s duration=%v err=%v",
			event.Type, event.PostID, time.Since(startTime), err)
		return err
	}

	log.Debugf("[Worker] HandleEvent OK: type=%s post=%s duration=%v", event.Type, event.PostID, time.Since(startTime))
	return nil
}

// handlePostPublished adds a post to the feed. A missing feed key is left
// alone; the next read warms it from storage with the post included.
func (h *Handler) handlePostPublished(ctx context.Context, event queue.FeedEvent) error {
	exists, err := h.feedCache.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check feed: %w", err)
	}
	if !exists {
		log.Debugf("[Worker] PostPublished: feed not warm, skipping post=%s", event.PostID)
		return nil
	}
	if err := h.feedCache.AddPost(ctx, event.PostID, event.Score()); err != nil {
		return fmt.Errorf("add to feed: %w", err)
	}
	log.Infof("[Worker] PostPublished DONE: post=%s author=%s", event.PostID, event.AuthorID)
	return nil
}

func (h *Handler) handlePostDeleted(ctx context.Context, event queue.FeedEvent) error {
	if err := h.feedCache.RemovePost(ctx, event.PostID); err != nil {
		return fmt.Errorf("remove from feed: %w", err)
	}
	log.Infof("[Worker] PostDeleted DONE: post=%s author=%s", event.PostID, event.AuthorID)
	return nil
}

// Rebuild reloads the feed from storage.
func (h *Handler) Rebuild(ctx context.Context) error {
	posts, err := h.posts.PublishedScores(ctx, RebuildLimit)
	if err != nil {
		return fmt.Errorf("load published posts: %w", err)
	}
	if err := h.feedCache.WarmCache(ctx, posts); err != nil {
		return err
	}
	log.Infof("[Worker] Rebuild DONE: posts=%d", len(posts))
	return nil
}
