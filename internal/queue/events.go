package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the feed stream
const (
	EventPostPublished = "post_published"
	EventPostDeleted   = "post_deleted"
	EventFeedRebuild   = "feed_rebuild"
)

// Stream names
const (
	StreamFeed = "stream:feed"
)

// Consumer group name for feed workers
const (
	ConsumerGroupFeed = "feed_workers"
)

// FeedEvent is published whenever the set of visible posts changes.
type FeedEvent struct {
	Type      string `json:"type"`      // EventPostPublished, EventPostDeleted, EventFeedRebuild
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	PostID   string `json:"post_id,omitempty"`
	AuthorID string `json:"author_id,omitempty"`

	// PublishedAt scores the post in the feed. Zero falls back to Timestamp.
	PublishedAt int64 `json:"published_at,omitempty"`
}

// NewPostPublishedEvent creates an event for a draft that just went live.
func NewPostPublishedEvent(postID, authorID string, publishedAt time.Time) FeedEvent {
	return FeedEvent{
		Type:        EventPostPublished,
		Timestamp:   time.Now().Unix(),
		PostID:      postID,
		AuthorID:    authorID,
		PublishedAt: publishedAt.Unix(),
	}
}

// NewPostDeletedEvent creates an event for a removed post.
func NewPostDeletedEvent(postID, authorID string) FeedEvent {
	return FeedEvent{
		Type:      EventPostDeleted,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorID:  authorID,
	}
}

// NewFeedRebuildEvent asks a worker to reload the whole feed from storage.
func NewFeedRebuildEvent() FeedEvent {
	return FeedEvent{
		Type:      EventFeedRebuild,
		Timestamp: time.Now().Unix(),
	}
}

// Score returns the feed score for post events.
func (e FeedEvent) Score() int64 {
	if e.PublishedAt != 0 {
		return e.PublishedAt
	}
	return e.Timestamp
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e FeedEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseFeedEvent parses a FeedEvent from Redis stream message values.
func ParseFeedEvent(values map[string]interface{}) (FeedEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return FeedEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event FeedEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return FeedEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
