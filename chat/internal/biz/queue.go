package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"

	"github.com/go-kratos/kratos/v2/log"
)

// JobQueue 投递队列
// 同步实现返回执行结果，异步实现入队成功后返回 nil 结果
type JobQueue interface {
	Dispatch(ctx context.Context, job *bo.DeliveryJob) (*bo.JobResult, error)
}

// MessageHandler 消息队列消费回调
type MessageHandler func(ctx context.Context, key string, value []byte) error

// Consumer 消息队列消费者
type Consumer interface {
	Start(ctx context.Context, handler MessageHandler)
}

// JobDedupRepo 已完成任务去重
type JobDedupRepo interface {
	IsDone(ctx context.Context, jobID string) (bool, error)
	// CheckAndSetDedup 标记任务完成，返回 true 表示首次标记
	CheckAndSetDedup(ctx context.Context, jobID string) (bool, error)
}

var _ JobQueue = (*InlineQueue)(nil)

// InlineQueue 在请求协程内直接执行任务
type InlineQueue struct {
	deliverer *Deliverer
}

func NewInlineQueue(d *Deliverer) *InlineQueue {
	return &InlineQueue{deliverer: d}
}

// Dispatch 请求超时或断开不会打断重试，任务总会走到成功或终止失败
func (q *InlineQueue) Dispatch(ctx context.Context, job *bo.DeliveryJob) (*bo.JobResult, error) {
	return q.deliverer.Execute(context.WithoutCancel(ctx), job), nil
}

var _ JobQueue = (*WorkerPool)(nil)

// WorkerPool 进程内工作池
// 同一订单的任务固定落在同一个 worker 上，保证单订单内按入队顺序执行
type WorkerPool struct {
	log       *log.Helper
	deliverer *Deliverer
	shards    []chan *bo.DeliveryJob
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	grace     time.Duration
}

// drainTimeout 停止时等待队列排空的最长时间
const drainTimeout = 30 * time.Second

// NewWorkerPool 创建并启动工作池
func NewWorkerPool(logger log.Logger, d *Deliverer, workers, buffer int) (*WorkerPool, func()) {
	if workers <= 0 {
		workers = 4
	}
	if buffer <= 0 {
		buffer = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{
		log:       log.NewHelper(logger),
		deliverer: d,
		shards:    make([]chan *bo.DeliveryJob, workers),
		ctx:       ctx,
		cancel:    cancel,
		grace:     drainTimeout,
	}
	for i := range p.shards {
		p.shards[i] = make(chan *bo.DeliveryJob, buffer)
		p.wg.Add(1)
		go p.work(p.shards[i])
	}
	cleanup := func() {
		p.mu.Lock()
		p.closed = true
		for _, ch := range p.shards {
			close(ch)
		}
		p.mu.Unlock()

		// 先排空已入队的任务，超时后取消，剩余任务按终止失败处理
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		timer := time.NewTimer(p.grace)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			p.log.Warnf("worker pool drain timed out after %s, abandon remaining jobs", p.grace)
			p.cancel()
			<-done
		}
		p.cancel()
		p.log.Info("worker pool stopped")
	}
	return p, cleanup
}

func (p *WorkerPool) Dispatch(ctx context.Context, job *bo.DeliveryJob) (*bo.JobResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, v1.ErrorQueueUnavailable("worker pool is stopped")
	}
	shard := p.shards[job.OrderID%uint64(len(p.shards))]
	select {
	case shard <- job:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return nil, v1.ErrorQueueUnavailable("delivery queue is full")
	}
}

func (p *WorkerPool) work(jobs <-chan *bo.DeliveryJob) {
	defer p.wg.Done()
	for job := range jobs {
		if err := p.ctx.Err(); err != nil {
			p.deliverer.Abandon(p.ctx, job, 0, err)
			continue
		}
		res := p.deliverer.Execute(p.ctx, job)
		if res.State == bo.JobFailedRetryable {
			// 进程内队列不会重新投递
			p.deliverer.Abandon(p.ctx, job, res.Attempts, res.Err)
		}
		p.log.Debugf("job finished. job_id=%s, state=%s, attempts=%d", job.ID, res.State, res.Attempts)
	}
}

// DeliveryHandler 消费队列中的投递任务
type DeliveryHandler struct {
	log       *log.Helper
	consumer  Consumer
	dedup     JobDedupRepo
	deliverer *Deliverer
	cancel    context.CancelFunc
}

// NewDeliveryHandler 创建消费处理器
func NewDeliveryHandler(logger log.Logger, consumer Consumer, dedup JobDedupRepo, d *Deliverer) *DeliveryHandler {
	return &DeliveryHandler{
		log:       log.NewHelper(logger),
		consumer:  consumer,
		dedup:     dedup,
		deliverer: d,
	}
}

// Start 实现 transport.Server
func (h *DeliveryHandler) Start(ctx context.Context) error {
	ctx, h.cancel = context.WithCancel(ctx)
	h.consumer.Start(ctx, h.Handle)
	return nil
}

// Stop 实现 transport.Server
func (h *DeliveryHandler) Stop(ctx context.Context) error {
	if h.cancel != nil {
		h.cancel()
	}
	return nil
}

// Handle 解码并执行一条投递任务
// 返回错误时消息不提交位移，等待重新投递
func (h *DeliveryHandler) Handle(ctx context.Context, key string, value []byte) error {
	var job bo.DeliveryJob
	if err := json.Unmarshal(value, &job); err != nil {
		// 无法解析的消息重试也没有意义
		h.log.WithContext(ctx).Errorf("drop malformed delivery job. key=%s, error=%v", key, err)
		return nil
	}
	done, err := h.dedup.IsDone(ctx, job.ID)
	if err != nil {
		h.log.WithContext(ctx).Warnf("check job dedup failed, continue. job_id=%s, error=%v", job.ID, err)
	}
	if done {
		h.log.WithContext(ctx).Infof("skip finished delivery job. job_id=%s", job.ID)
		return nil
	}
	res := h.deliverer.Execute(ctx, &job)
	if res.State == bo.JobFailedRetryable {
		return fmt.Errorf("job %s interrupted after %d attempts: %w", job.ID, res.Attempts, res.Err)
	}
	if _, err := h.dedup.CheckAndSetDedup(ctx, job.ID); err != nil {
		h.log.WithContext(ctx).Warnf("mark job done failed. job_id=%s, error=%v", job.ID, err)
	}
	return nil
}
