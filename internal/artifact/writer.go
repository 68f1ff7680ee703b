package artifact

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"VidyaSync/internal/models"
	"VidyaSync/internal/store"
	"VidyaSync/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WriterOptions 异步持久化参数
type WriterOptions struct {
	QueueSize    int           // 队列容量，满时直接进入重试队列
	MaxRetries   int           // 超过后放弃并记录错误
	WriteTimeout time.Duration // 单次写入超时
}

func (o WriterOptions) withDefaults() WriterOptions {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	return o
}

type persistJob struct {
	id        string
	key       models.ArtifactKey
	data      []byte
	attempts  int
	cancelled bool // 所属资源已删除
}

// errHeld 配音等待同语言字幕落盘
var errHeld = stderrors.New("waiting for transcript to persist")

// Writer 后台写入生成结果，调用方不等待确认。
// 未确认的文档保存在 pending 中供 Pending 读取，失败的写入进入重试队列由 Flush 处理。
// 配音总在同语言字幕确认之后写入；字幕被放弃时配音一并放弃。
type Writer struct {
	store   store.DocumentStore
	opts    WriterOptions
	logger  *zap.Logger
	metrics *metrics.Metrics

	queue chan *persistJob
	done  chan struct{}

	mu      sync.Mutex
	pending map[string]*persistJob
	held    map[string]*persistJob // 字幕键 -> 等待它的配音
	retry   []*persistJob
	closed  bool
}

func NewWriter(s store.DocumentStore, opts WriterOptions, logger *zap.Logger, m *metrics.Metrics) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	w := &Writer{
		store:   s,
		opts:    opts,
		logger:  logger,
		metrics: m,
		queue:   make(chan *persistJob, opts.QueueSize),
		done:    make(chan struct{}),
		pending: make(map[string]*persistJob),
		held:    make(map[string]*persistJob),
	}
	go w.loop()
	return w
}

// Enqueue 登记待写入文档，不阻塞调用方
func (w *Writer) Enqueue(key models.ArtifactKey, data []byte) {
	job := &persistJob{id: uuid.NewString(), key: key, data: data}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[key.String()] = job
	w.metrics.SetPersistPending(len(w.pending))

	if w.closed {
		w.retry = append(w.retry, job)
		w.logger.Warn("writer closed, write deferred to retry queue", zap.String("key", key.String()))
		return
	}
	select {
	case w.queue <- job:
	default:
		w.retry = append(w.retry, job)
		w.logger.Warn("persist queue full, write deferred to retry queue", zap.String("key", key.String()))
	}
}

// Pending 返回尚未被存储确认的文档
func (w *Writer) Pending(key models.ArtifactKey) ([]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	job, ok := w.pending[key.String()]
	if !ok {
		return nil, false
	}
	return job.data, true
}

// Forget 丢弃某资源的全部待写入文档，用于级联删除。
// 正在写入的文档在写入完成后会被删除。
func (w *Writer) Forget(resourceID string) {
	prefix := models.ResourcePrefix(resourceID)

	w.mu.Lock()
	defer w.mu.Unlock()
	for k, job := range w.pending {
		if strings.HasPrefix(k, prefix) {
			job.cancelled = true
			delete(w.pending, k)
		}
	}
	for k, job := range w.held {
		if job.key.ResourceID == resourceID {
			delete(w.held, k)
		}
	}
	kept := w.retry[:0]
	for _, job := range w.retry {
		if job.key.ResourceID != resourceID {
			kept = append(kept, job)
		}
	}
	w.retry = kept
	w.metrics.SetPersistPending(len(w.pending))
}

func (w *Writer) loop() {
	defer close(w.done)
	for job := range w.queue {
		if err := w.persist(context.Background(), job); err != nil && !stderrors.Is(err, errHeld) {
			w.fail(job, err)
		}
	}
}

// current 判断 job 是否仍是该键最新的待写入文档
func (w *Writer) current(job *persistJob) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending[job.key.String()] == job
}

// hold 同语言字幕仍未确认时挂起配音，字幕写入成功后重新提交
func (w *Writer) hold(job *persistJob) bool {
	if job.key.Kind != models.KindDubbing {
		return false
	}
	tk := transcriptKey(job.key.ResourceID, job.key.Language).String()

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, waiting := w.pending[tk]; !waiting {
		return false
	}
	w.held[tk] = job
	return true
}

func (w *Writer) persist(ctx context.Context, job *persistJob) error {
	if !w.current(job) {
		return nil
	}
	if w.hold(job) {
		return errHeld
	}
	ctx, cancel := context.WithTimeout(ctx, w.opts.WriteTimeout)
	defer cancel()

	job.attempts++
	if err := w.store.Set(ctx, job.key, job.data); err != nil {
		return err
	}

	k := job.key.String()
	w.mu.Lock()
	cancelled := job.cancelled
	if w.pending[k] == job {
		delete(w.pending, k)
	}
	next := w.held[k]
	delete(w.held, k)
	w.metrics.SetPersistPending(len(w.pending))
	w.mu.Unlock()

	if cancelled {
		if err := w.store.DeleteByResource(ctx, job.key.ResourceID); err != nil {
			w.logger.Warn("remove artifact of deleted resource failed", zap.String("key", k), zap.Error(err))
		}
		return nil
	}
	w.logger.Debug("artifact persisted",
		zap.String("key", k),
		zap.String("job", job.id),
		zap.Int("attempt", job.attempts))
	if next != nil {
		w.resubmit(next)
	}
	return nil
}

func (w *Writer) resubmit(job *persistJob) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending[job.key.String()] != job {
		return
	}
	if !w.closed {
		select {
		case w.queue <- job:
			return
		default:
		}
	}
	w.retry = append(w.retry, job)
}

func (w *Writer) fail(job *persistJob, err error) {
	w.metrics.RecordPersistFailure(string(job.key.Kind))

	k := job.key.String()
	w.mu.Lock()
	giveUp := job.attempts >= w.opts.MaxRetries
	var dependent *persistJob
	if giveUp {
		if w.pending[k] == job {
			delete(w.pending, k)
		}
		if dependent = w.held[k]; dependent != nil {
			delete(w.held, k)
			if w.pending[dependent.key.String()] == dependent {
				delete(w.pending, dependent.key.String())
			}
		}
		w.metrics.SetPersistPending(len(w.pending))
	} else {
		w.retry = append(w.retry, job)
	}
	w.mu.Unlock()

	w.logger.Error("artifact persist failed",
		zap.String("key", job.key.String()),
		zap.String("job", job.id),
		zap.Int("attempt", job.attempts),
		zap.Error(err))
	if giveUp {
		w.metrics.RecordPersistRetry("dropped")
		w.logger.Error("giving up on artifact persist",
			zap.String("key", job.key.String()),
			zap.String("job", job.id),
			zap.Int("attempts", job.attempts))
	}
	if dependent != nil {
		w.metrics.RecordPersistFailure(string(dependent.key.Kind))
		w.logger.Error("dropping artifact whose transcript was not persisted",
			zap.String("key", dependent.key.String()),
			zap.String("job", dependent.id))
	}
}

// Flush 重试失败或被延后的写入，返回本轮仍未成功的数量
func (w *Writer) Flush(ctx context.Context) int {
	w.mu.Lock()
	jobs := w.retry
	w.retry = nil
	w.mu.Unlock()

	for _, job := range jobs {
		if ctx.Err() != nil {
			w.mu.Lock()
			w.retry = append(w.retry, job)
			w.mu.Unlock()
			continue
		}
		if !w.current(job) {
			continue
		}
		err := w.persist(ctx, job)
		switch {
		case stderrors.Is(err, errHeld):
		case err != nil:
			w.fail(job, err)
		default:
			w.metrics.RecordPersistRetry("success")
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.retry)
}

// Run 实现 scheduler.Job
func (w *Writer) Run(ctx context.Context) {
	if n := w.Flush(ctx); n > 0 {
		w.logger.Warn("artifact writes still pending after retry", zap.Int("count", n))
	}
}

// Close 停止接收并排空队列，最后做一次重试
func (w *Writer) Close(ctx context.Context) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	select {
	case <-w.done:
	case <-ctx.Done():
		return
	}
	// 第二轮写入第一轮中刚被放行的配音
	if w.Flush(ctx) > 0 {
		w.Flush(ctx)
	}
}
