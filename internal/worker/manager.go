package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"inkcircle/internal/queue"
)

const (
	DefaultWorkerCount  = 2
	DefaultBatchSize    = 10
	DefaultBlockTimeout = 5 * time.Second

	errorBackoff = time.Second
)

// EventHandler applies one feed event. *Handler is the production one.
type EventHandler interface {
	HandleEvent(ctx context.Context, event queue.FeedEvent) error
}

// ManagerConfig tunes the consumer loop. Zero values fall back to defaults.
type ManagerConfig struct {
	Stream       string
	Group        string
	WorkerCount  int
	BatchSize    int64
	BlockTimeout time.Duration // XREADGROUP block
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Stream:       queue.StreamFeed,
		Group:        queue.ConsumerGroupFeed,
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
	}
}

// Stats counts events since Start. Failed events are included in Acked.
type Stats struct {
	Handled int64
	Failed  int64
	Acked   int64
}

// Manager runs a pool of consumers over one stream and consumer group.
type Manager struct {
	consumer queue.Consumer
	handler  EventHandler
	cfg      ManagerConfig

	handled atomic.Int64
	failed  atomic.Int64
	acked   atomic.Int64

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewManager(consumer queue.Consumer, handler EventHandler, cfg ManagerConfig) *Manager {
	def := DefaultManagerConfig()
	if cfg.Stream == "" {
		cfg.Stream = def.Stream
	}
	if cfg.Group == "" {
		cfg.Group = def.Group
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = def.BlockTimeout
	}
	return &Manager{consumer: consumer, handler: handler, cfg: cfg}
}

// Start creates the consumer group if needed and launches the workers.
// They run until ctx is cancelled or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	if err := m.consumer.EnsureGroup(ctx, m.cfg.Stream, m.cfg.Group); err != nil {
		cancel()
		return fmt.Errorf("ensure group %s: %w", m.cfg.Group, err)
	}
	m.cancel = cancel

	for i := 1; i <= m.cfg.WorkerCount; i++ {
		w := &streamWorker{m: m, id: i, name: fmt.Sprintf("worker-%d", i)}
		m.wg.Add(1)
		go w.run(ctx)
	}

	log.Infof("[Manager] Started %d workers for stream=%s group=%s",
		m.cfg.WorkerCount, m.cfg.Stream, m.cfg.Group)
	return nil
}

// Stop cancels the workers and waits for them to return.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	log.Info("[Manager] Stopping workers...")
	m.cancel()
	m.wg.Wait()
	log.Infof("[Manager] All workers stopped: %+v", m.Stats())
}

func (m *Manager) Stats() Stats {
	return Stats{Handled: m.handled.Load(), Failed: m.failed.Load(), Acked: m.acked.Load()}
}

type streamWorker struct {
	m    *Manager
	id   int
	name string
}

func (w *streamWorker) run(ctx context.Context) {
	defer w.m.wg.Done()
	log.Debugf("[Worker-%d] Started (consumer=%s)", w.id, w.name)

	// Finish whatever a previous run of this consumer left unacknowledged.
	w.drainPending(ctx)

	for ctx.Err() == nil {
		w.readOnce(ctx)
	}
	log.Debugf("[Worker-%d] Shutting down", w.id)
}

func (w *streamWorker) drainPending(ctx context.Context) {
	cfg := w.m.cfg
	for ctx.Err() == nil {
		messages, err := w.m.consumer.ReadPending(ctx, cfg.Stream, cfg.Group, w.name, cfg.BatchSize)
		if err != nil {
			log.Warnf("[Worker-%d] ReadPending FAILED: %v", w.id, err)
			return
		}
		if len(messages) == 0 {
			return
		}
		log.Infof("[Worker-%d] Replaying %d pending messages", w.id, len(messages))
		w.process(ctx, messages)
	}
}

func (w *streamWorker) readOnce(ctx context.Context) {
	cfg := w.m.cfg
	messages, err := w.m.consumer.Read(ctx, cfg.Stream, cfg.Group, w.name, cfg.BatchSize, cfg.BlockTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Warnf("[Worker-%d] Read FAILED: %v", w.id, err)
		select {
		case <-ctx.Done():
		case <-time.After(errorBackoff):
		}
		return
	}
	w.process(ctx, messages)
}

// process acks every message, failed or not. The next rebuild repairs
// whatever a failed event missed.
func (w *streamWorker) process(ctx context.Context, messages []queue.Message) {
	cfg := w.m.cfg
	for _, msg := range messages {
		w.m.handled.Add(1)
		if err := w.m.handler.HandleEvent(ctx, msg.Event); err != nil {
			w.m.failed.Add(1)
			log.Warnf("[Worker-%d] HandleEvent FAILED: msg=%s type=%s err=%v", w.id, msg.ID, msg.Event.Type, err)
		}
		if err := w.m.consumer.Ack(ctx, cfg.Stream, cfg.Group, msg.ID); err != nil {
			log.Warnf("[Worker-%d] Ack FAILED: msg=%s err=%v", w.id, msg.ID, err)
			continue
		}
		w.m.acked.Add(1)
	}
}
