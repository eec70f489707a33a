package biz

import (
	"context"
	"time"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/monitoring"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// RetryPolicy 投递重试策略
type RetryPolicy struct {
	MaxAttempts int
	Backoff     []time.Duration
}

// DefaultRetryPolicy 最多3次，间隔 10s, 30s, 60s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second},
	}
}

// NewRetryPolicy 从配置读取，缺省项使用默认值
func NewRetryPolicy(cb *conf.Bootstrap) RetryPolicy {
	p := DefaultRetryPolicy()
	if q := cb.Queue; q != nil {
		if q.MaxAttempts > 0 {
			p.MaxAttempts = q.MaxAttempts
		}
		if len(q.Backoff) > 0 {
			p.Backoff = make([]time.Duration, 0, len(q.Backoff))
			for _, d := range q.Backoff {
				p.Backoff = append(p.Backoff, d.AsDuration())
			}
		}
	}
	return p
}

// Delay 第 attempt 次失败后的等待时间，超出列表时沿用最后一项
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if len(p.Backoff) == 0 || attempt < 1 {
		return 0
	}
	if attempt > len(p.Backoff) {
		return p.Backoff[len(p.Backoff)-1]
	}
	return p.Backoff[attempt-1]
}

// IsRetryable 只有存储与基础设施错误可以重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case v1.IsStorageFailed(err), v1.IsQueueUnavailable(err), v1.IsInternal(err):
		return true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	// 没有业务原因的错误来自数据库、Redis 等依赖
	return errors.FromError(err).Reason == ""
}

// Deliverer 执行投递任务：复核权限、附件转正、入库、扇出
type Deliverer struct {
	log         *log.Helper
	orders      OrderRepo
	users       UserRepo
	messages    MessageRepo
	store       *MessageStore
	policy      *AccessPolicy
	attachments *AttachmentPipeline
	fanout      *Fanout
	retry       RetryPolicy
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewDeliverer 创建投递执行器
func NewDeliverer(cb *conf.Bootstrap, logger log.Logger, orders OrderRepo, users UserRepo, messages MessageRepo,
	store *MessageStore, policy *AccessPolicy, attachments *AttachmentPipeline, fanout *Fanout) *Deliverer {
	return &Deliverer{
		log:         log.NewHelper(logger),
		orders:      orders,
		users:       users,
		messages:    messages,
		store:       store,
		policy:      policy,
		attachments: attachments,
		fanout:      fanout,
		retry:       NewRetryPolicy(cb),
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Run 执行一次投递
// 权限以执行时的订单和用户状态为准，入队时的校验不作数
func (d *Deliverer) Run(ctx context.Context, job *bo.DeliveryJob) (*bo.Message, error) {
	order, err := d.orders.GetOrder(ctx, job.OrderID)
	if err != nil {
		return nil, err
	}
	sender, err := d.users.GetUser(ctx, job.UserID)
	if err != nil {
		return nil, err
	}
	role := d.policy.RoleFor(sender, order)
	if !d.policy.CanSend(sender, order, role) {
		return nil, v1.ErrorPermissionDenied("user %d can no longer send on order %d as %s", sender.ID, order.ID, role)
	}

	msg, err := d.messages.GetByJobID(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if msg != nil {
		d.log.WithContext(ctx).Infof("message already persisted, skip insert. job_id=%s, message_id=%d", job.ID, msg.ID)
	} else {
		msg = &bo.Message{
			JobID:             job.ID,
			OrderID:           order.ID,
			UserID:            sender.ID,
			Body:              job.Body,
			Type:              job.Type,
			IsDeliveryMessage: role == bo.RoleDelivery,
			CreatedAt:         d.now(),
		}
		if job.Attachment != nil {
			// 入库前先转正附件，失败时不写库
			finalPath, err := d.attachments.Finalize(ctx, job.Attachment, order.ID, job.ID)
			if err != nil {
				return nil, err
			}
			msg.AttachmentPath = finalPath
		}
		if msg, err = d.store.Create(ctx, msg); err != nil {
			return nil, err
		}
	}
	msg.Sender = &bo.UserSummary{ID: sender.ID, Name: sender.Name, Role: role}

	report := d.fanout.Publish(ctx, msg, order, sender, role)
	if len(report.Failures) > 0 {
		d.log.WithContext(ctx).Warnf("fan-out finished with %d failures. job_id=%s, message_id=%d, notified=%d",
			len(report.Failures), job.ID, msg.ID, report.Notified)
	}
	return msg, nil
}

// Execute 按重试策略执行任务直到成功或终止
// 入队同步执行与队列消费都走这里，副作用一致
func (d *Deliverer) Execute(ctx context.Context, job *bo.DeliveryJob) *bo.JobResult {
	res := &bo.JobResult{State: bo.JobQueued}
	for attempt := 1; ; attempt++ {
		res.State = bo.JobRunning
		res.Attempts = attempt
		msg, err := d.Run(ctx, job)
		if err == nil {
			res.State = bo.JobSucceeded
			res.Message = msg
			res.Err = nil
			monitoring.RecordDeliveryJob(ctx, string(res.State), attempt)
			return res
		}
		res.Err = err
		if !IsRetryable(err) || attempt >= d.retry.MaxAttempts {
			if ctx.Err() != nil {
				// 进程退出导致的中断保留附件，由队列重新投递
				res.State = bo.JobFailedRetryable
				return res
			}
			res.State = bo.JobFailedTerminal
			d.Abandon(ctx, job, attempt, err)
			return res
		}
		res.State = bo.JobFailedRetryable
		delay := d.retry.Delay(attempt)
		d.log.WithContext(ctx).Warnf("delivery attempt failed, retry in %s. job_id=%s, order_id=%d, user_id=%d, attempt=%d, error=%v",
			delay, job.ID, job.OrderID, job.UserID, attempt, err)
		monitoring.RecordDeliveryJob(ctx, string(res.State), attempt)
		if err := d.sleep(ctx, delay); err != nil {
			return res
		}
	}
}

// Abandon 任务不会再执行时调用：丢弃附件并记录终止失败
func (d *Deliverer) Abandon(ctx context.Context, job *bo.DeliveryJob, attempts int, err error) {
	cleanupCtx := context.WithoutCancel(ctx)
	d.attachments.Discard(cleanupCtx, job.Attachment)
	d.log.WithContext(ctx).Errorw(
		"msg", "delivery job failed permanently",
		"job_id", job.ID,
		"order_id", job.OrderID,
		"user_id", job.UserID,
		"attempts", attempts,
		"error", err.Error(),
	)
	monitoring.RecordDeliveryJob(ctx, string(bo.JobFailedTerminal), attempts)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
