package worker_test

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"inkcircle/internal/cache"
	"inkcircle/internal/queue"
	"inkcircle/internal/worker"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockFeedCache is an in-memory sorted set standing in for Redis.
type MockFeedCache struct {
	mu     sync.Mutex
	scores map[string]int64
	warm   bool
	err    error
}

func NewMockFeedCache() *MockFeedCache {
	return &MockFeedCache{scores: make(map[string]int64)}
}

func (m *MockFeedCache) AddPost(ctx context.Context, postID string, timestamp int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.scores[postID] = timestamp
	m.warm = true
	return nil
}

func (m *MockFeedCache) RemovePost(ctx context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.scores, postID)
	return nil
}

func (m *MockFeedCache) GetFeed(ctx context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.scores))
	for id := range m.scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return m.scores[ids[i]] > m.scores[ids[j]] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *MockFeedCache) WarmCache(ctx context.Context, posts []cache.PostScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.scores = make(map[string]int64, len(posts))
	for _, p := range posts {
		m.scores[p.PostID] = p.Timestamp
	}
	m.warm = true
	return nil
}

func (m *MockFeedCache) Size(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.scores)), nil
}

func (m *MockFeedCache) Exists(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warm, m.err
}

// MockPostsProvider returns a fixed list of published posts.
type MockPostsProvider struct {
	posts []cache.PostScore
	err   error
}

func (m *MockPostsProvider) PublishedScores(ctx context.Context, limit int) ([]cache.PostScore, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.posts) > limit {
		return m.posts[:limit], nil
	}
	return m.posts, nil
}

// MockConsumer hands out queued messages once and records acks.
type MockConsumer struct {
	mu      sync.Mutex
	pending []queue.Message
	fresh   []queue.Message
	acked   []string
}

func (m *MockConsumer) EnsureGroup(ctx context.Context, stream, group string) error { return nil }

func (m *MockConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]queue.Message, error) {
	m.mu.Lock()
	msgs := m.fresh
	m.fresh = nil
	m.mu.Unlock()
	if len(msgs) == 0 {
		select {
		case <-ctx.Done():
		case <-time.After(block):
		}
	}
	return msgs, nil
}

func (m *MockConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]queue.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.pending
	m.pending = nil
	return msgs, nil
}

func (m *MockConsumer) Ack(ctx context.Context, stream, group string, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, ids...)
	return nil
}

func (m *MockConsumer) Pending(ctx context.Context, stream, group string) (int64, error) {
	return 0, nil
}

func (m *MockConsumer) Acked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acked...)
}

// =============================================================================
// Handler Tests
// =============================================================================

func TestPostPublished_AddsToWarmFeed(t *testing.T) {
	ctx := context.Background()
	feed := NewMockFeedCache()
	handler := worker.NewHandler(feed, &MockPostsProvider{})

	feed.WarmCache(ctx, []cache.PostScore{{PostID: "old", Timestamp: 100}})

	event := queue.NewPostPublishedEvent("new", "u1", time.Unix(200, 0))
	if err := handler.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	ids, _ := feed.GetFeed(ctx, 10)
	if len(ids) != 2 || ids[0] != "new" {
		t.Errorf("feed after publish: got %v, want [new old]", ids)
	}
}

func TestPostPublished_ColdFeedIsLeftForWarmup(t *testing.T) {
	ctx := context.Background()
	feed := NewMockFeedCache()
	handler := worker.NewHandler(feed, &MockPostsProvider{})

	if err := handler.HandleEvent(ctx, queue.NewPostPublishedEvent("p1", "u1", time.Now())); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	if exists, _ := feed.Exists(ctx); exists {
		t.Error("a cold feed must not be created from a single post")
	}
}

func TestPostDeleted_RemovesFromFeed(t *testing.T) {
	ctx := context.Background()
	feed := NewMockFeedCache()
	handler := worker.NewHandler(feed, &MockPostsProvider{})
	feed.WarmCache(ctx, []cache.PostScore{{PostID: "a", Timestamp: 1}, {PostID: "b", Timestamp: 2}})

	if err := handler.HandleEvent(ctx, queue.NewPostDeletedEvent("a", "u1")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	if size, _ := feed.Size(ctx); size != 1 {
		t.Errorf("feed size: got %d, want 1", size)
	}
}

func TestFeedRebuild_ReplacesFeed(t *testing.T) {
	ctx := context.Background()
	feed := NewMockFeedCache()
	feed.AddPost(ctx, "stale", 999)
	posts := &MockPostsProvider{posts: []cache.PostScore{{PostID: "x", Timestamp: 2}, {PostID: "y", Timestamp: 1}}}
	handler := worker.NewHandler(feed, posts)

	if err := handler.HandleEvent(ctx, queue.NewFeedRebuildEvent()); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	ids, _ := feed.GetFeed(ctx, 10)
	if len(ids) != 2 || ids[0] != "x" || ids[1] != "y" {
		t.Errorf("feed after rebuild: got %v, want [x y]", ids)
	}
}

func TestHandleEvent_Errors(t *testing.T) {
	ctx := context.Background()

	handler := worker.NewHandler(NewMockFeedCache(), &MockPostsProvider{})
	if err := handler.HandleEvent(ctx, queue.FeedEvent{Type: "user_followed"}); err == nil {
		t.Error("unknown event type should fail")
	}

	boom := errors.New("storage down")
	handler = worker.NewHandler(NewMockFeedCache(), &MockPostsProvider{err: boom})
	if err := handler.HandleEvent(ctx, queue.NewFeedRebuildEvent()); !errors.Is(err, boom) {
		t.Errorf("rebuild error: got %v, want wrapped %v", err, boom)
	}
}

// =============================================================================
// Manager Tests
// =============================================================================

func TestManager_ProcessesPendingThenNewAndAcks(t *testing.T) {
	feed := NewMockFeedCache()
	feed.WarmCache(context.Background(), nil)
	handler := worker.NewHandler(feed, &MockPostsProvider{})

	consumer := &MockConsumer{
		pending: []queue.Message{{ID: "1-0", Event: queue.NewPostPublishedEvent("p1", "u1", time.Unix(10, 0))}},
		fresh:   []queue.Message{{ID: "2-0", Event: queue.NewPostPublishedEvent("p2", "u1", time.Unix(20, 0))}},
	}

	m := worker.NewManager(consumer, handler, worker.ManagerConfig{WorkerCount: 1, BlockTimeout: 10 * time.Millisecond})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(consumer.Acked()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()

	acked := consumer.Acked()
	if len(acked) != 2 || acked[0] != "1-0" || acked[1] != "2-0" {
		t.Fatalf("acked: got %v, want [1-0 2-0]", acked)
	}
	ids, _ := feed.GetFeed(context.Background(), 10)
	if len(ids) != 2 || ids[0] != "p2" {
		t.Errorf("feed: got %v, want [p2 p1]", ids)
	}
	if stats := m.Stats(); stats.Handled != 2 || stats.Failed != 0 || stats.Acked != 2 {
		t.Errorf("stats: got %+v", stats)
	}
}

type failingHandler struct{}

func (failingHandler) HandleEvent(context.Context, queue.FeedEvent) error {
	return errors.New("cache down")
}

func TestManager_AcksFailedEvents(t *testing.T) {
	consumer := &MockConsumer{
		fresh: []queue.Message{{ID: "7-0", Event: queue.NewPostDeletedEvent("p1", "u1")}},
	}

	m := worker.NewManager(consumer, failingHandler{}, worker.ManagerConfig{WorkerCount: 1, BlockTimeout: 10 * time.Millisecond})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(consumer.Acked()) < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()

	if acked := consumer.Acked(); len(acked) != 1 || acked[0] != "7-0" {
		t.Fatalf("acked: got %v, want [7-0]", acked)
	}
	if stats := m.Stats(); stats.Failed != 1 || stats.Acked != 1 {
		t.Errorf("stats: got %+v, want 1 failed and 1 acked", stats)
	}
}

// =============================================================================
// Stream + Worker Integration Test
// =============================================================================

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis integration test")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}

	client := redis.NewClient(opts)
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}
	client.FlushDB(ctx)

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

// TestStreamToWorkerIntegration covers Publisher -> Stream -> Consumer -> Handler -> Cache.
func TestStreamToWorkerIntegration(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	feedCache := cache.NewFeedCache(client)
	publisher := queue.NewPublisher(client)
	consumer := queue.NewConsumer(client)
	handler := worker.NewHandler(feedCache, &MockPostsProvider{
		posts: []cache.PostScore{{PostID: "seed", Timestamp: 1}},
	})

	if err := consumer.EnsureGroup(ctx, queue.StreamFeed, queue.ConsumerGroupFeed); err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}
	if _, err := publisher.Publish(ctx, queue.StreamFeed, queue.NewFeedRebuildEvent()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if _, err := publisher.Publish(ctx, queue.StreamFeed, queue.NewPostPublishedEvent("p100", "u1", time.Now())); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	messages, err := consumer.Read(ctx, queue.StreamFeed, queue.ConsumerGroupFeed, "test-worker", 10, time.Second)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}

	for _, msg := range messages {
		if err := handler.HandleEvent(ctx, msg.Event); err != nil {
			t.Fatalf("HandleEvent failed: %v", err)
		}
		if err := consumer.Ack(ctx, queue.StreamFeed, queue.ConsumerGroupFeed, msg.ID); err != nil {
			t.Fatalf("Ack failed: %v", err)
		}
	}

	ids, err := feedCache.GetFeed(ctx, 10)
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "p100" {
		t.Errorf("feed: got %v, want [p100 seed]", ids)
	}

	pending, _ := consumer.Pending(ctx, queue.StreamFeed, queue.ConsumerGroupFeed)
	if pending != 0 {
		t.Errorf("Expected 0 pending messages, got %d", pending)
	}
}
