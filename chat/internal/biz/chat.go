package biz

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// Requester 加载请求者与订单，并计算角色
type Requester struct {
	orders OrderRepo
	users  UserRepo
	policy *AccessPolicy
}

func NewRequester(orders OrderRepo, users UserRepo, policy *AccessPolicy) *Requester {
	return &Requester{orders: orders, users: users, policy: policy}
}

// User 加载当前用户，未登录返回 UNAUTHENTICATED
func (r *Requester) User(ctx context.Context, userID uint64) (*bo.User, error) {
	if userID == 0 {
		return nil, v1.ErrorUnauthenticated("authentication required")
	}
	return r.users.GetUser(ctx, userID)
}

// Load 加载用户、订单和角色
func (r *Requester) Load(ctx context.Context, userID, orderID uint64) (*bo.User, *bo.Order, bo.Role, error) {
	user, err := r.User(ctx, userID)
	if err != nil {
		return nil, nil, bo.RoleGuest, err
	}
	order, err := r.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, bo.RoleGuest, err
	}
	return user, order, r.policy.RoleFor(user, order), nil
}

// ChatView 聊天列表
type ChatView struct {
	Messages    []*bo.Message
	Role        bo.Role
	UnreadCount int64
}

// SendRequest 发送消息请求
type SendRequest struct {
	OrderID uint64
	Body    string
	Type    bo.MessageType
	Upload  *Upload
}

// SendResult Queued 为 true 时消息稍后经实时频道到达
type SendResult struct {
	JobID   string
	Queued  bool
	Message *bo.Message
}

// Attachment 附件下载
type Attachment struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
}

// ChatUsecase 订单聊天用例
type ChatUsecase struct {
	log         *log.Helper
	requester   *Requester
	policy      *AccessPolicy
	store       *MessageStore
	attachments *AttachmentPipeline
	queue       JobQueue
	now         func() time.Time
}

// NewChatUsecase 创建聊天用例
func NewChatUsecase(logger log.Logger, requester *Requester, policy *AccessPolicy, store *MessageStore,
	attachments *AttachmentPipeline, queue JobQueue) *ChatUsecase {
	return &ChatUsecase{
		log:         log.NewHelper(logger),
		requester:   requester,
		policy:      policy,
		store:       store,
		attachments: attachments,
		queue:       queue,
		now:         time.Now,
	}
}

func (uc *ChatUsecase) access(ctx context.Context, userID, orderID uint64) (*bo.User, *bo.Order, bo.Role, error) {
	user, order, role, err := uc.requester.Load(ctx, userID, orderID)
	if err != nil {
		return nil, nil, role, err
	}
	if !uc.policy.CanAccess(user, order, role) {
		return nil, nil, role, v1.ErrorPermissionDenied("user %d cannot access chat of order %d", user.ID, order.ID)
	}
	return user, order, role, nil
}

// List 返回当前用户可见的消息
func (uc *ChatUsecase) List(ctx context.Context, userID, orderID uint64) (*ChatView, error) {
	user, order, role, err := uc.access(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	messages, err := uc.store.ListForOrder(ctx, order.ID, role, order.AssignedAt)
	if err != nil {
		return nil, err
	}
	unread, err := uc.store.UnreadCount(ctx, order.ID, user.ID, role, order.AssignedAt)
	if err != nil {
		return nil, err
	}
	return &ChatView{Messages: messages, Role: role, UnreadCount: unread}, nil
}

// Send 同步完成权限与参数校验，随后交给投递队列
func (uc *ChatUsecase) Send(ctx context.Context, userID uint64, req *SendRequest) (*SendResult, error) {
	if req.Upload != nil {
		// 超限文件在暂存前拒绝
		if err := uc.attachments.CheckSize(req.Upload.Size); err != nil {
			return nil, err
		}
	}
	user, order, role, err := uc.requester.Load(ctx, userID, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !uc.policy.CanSend(user, order, role) {
		return nil, v1.ErrorPermissionDenied("user %d cannot send on order %d", user.ID, order.ID)
	}
	if err := ValidateMessage(req.Body, req.Upload != nil, uc.store.MaxLength()); err != nil {
		return nil, err
	}
	requested := req.Type
	if requested == "" {
		requested = bo.MessageTypeAuto
	}
	if req.Upload == nil && requested != bo.MessageTypeAuto && requested != bo.MessageTypeText {
		return nil, v1.ErrorValidationFailed("%s message requires a file", requested)
	}

	job := &bo.DeliveryJob{
		ID:         uuid.NewString(),
		OrderID:    order.ID,
		UserID:     user.ID,
		Body:       req.Body,
		Type:       bo.MessageTypeText,
		EnqueuedAt: uc.now().UTC(),
	}
	if req.Upload != nil {
		pending, err := uc.attachments.Stage(ctx, req.Upload)
		if err != nil {
			return nil, err
		}
		job.Attachment = pending
		job.Type, err = resolveAttachmentType(requested, pending)
		if err != nil {
			uc.attachments.Discard(ctx, pending)
			return nil, err
		}
		if strings.TrimSpace(job.Body) == "" {
			job.Body = pending.OriginalName
		}
	}

	res, err := uc.queue.Dispatch(ctx, job)
	if err != nil {
		uc.attachments.Discard(ctx, job.Attachment)
		uc.log.WithContext(ctx).Errorf("dispatch delivery job failed. job_id=%s, order_id=%d, error=%v", job.ID, job.OrderID, err)
		if v1.IsQueueUnavailable(err) {
			return nil, err
		}
		return nil, v1.ErrorQueueUnavailable("delivery queue unavailable")
	}
	if res == nil {
		return &SendResult{JobID: job.ID, Queued: true}, nil
	}
	if res.State != bo.JobSucceeded {
		uc.attachments.Discard(context.WithoutCancel(ctx), job.Attachment)
		return nil, res.Err
	}
	return &SendResult{JobID: job.ID, Message: res.Message}, nil
}

func resolveAttachmentType(requested bo.MessageType, pending *bo.PendingAttachment) (bo.MessageType, error) {
	switch requested {
	case bo.MessageTypeAuto:
		return pending.ContentClass, nil
	case bo.MessageTypeImage, bo.MessageTypeFile:
		if requested != pending.ContentClass {
			return "", v1.ErrorValidationFailed("attachment of type %s cannot be sent as %s", pending.MimeType, requested)
		}
		return requested, nil
	default:
		return "", v1.ErrorValidationFailed("%s message cannot carry a file", requested)
	}
}

// MarkRead 标记已读，返回本次更新条数
func (uc *ChatUsecase) MarkRead(ctx context.Context, userID, orderID uint64) (int64, error) {
	user, order, role, err := uc.access(ctx, userID, orderID)
	if err != nil {
		return 0, err
	}
	return uc.store.MarkRead(ctx, order.ID, user.ID, role, order.AssignedAt)
}

func (uc *ChatUsecase) UnreadCount(ctx context.Context, userID, orderID uint64) (int64, error) {
	user, order, role, err := uc.access(ctx, userID, orderID)
	if err != nil {
		return 0, err
	}
	return uc.store.UnreadCount(ctx, order.ID, user.ID, role, order.AssignedAt)
}

func (uc *ChatUsecase) Stats(ctx context.Context, userID, orderID uint64) (*bo.ChatStats, error) {
	user, order, role, err := uc.access(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return uc.store.Stats(ctx, order.ID, user.ID, role, order.AssignedAt)
}

// Attachment 打开消息附件，骑手看不到指派前的消息
func (uc *ChatUsecase) Attachment(ctx context.Context, userID, orderID, messageID uint64) (*Attachment, error) {
	_, order, role, err := uc.access(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	msg, err := uc.store.repo.Get(ctx, order.ID, messageID)
	if err != nil {
		return nil, err
	}
	if since := VisibleSince(order, role); since != nil && msg.CreatedAt.Before(*since) {
		return nil, v1.ErrorMessageNotFound("message %d not found", messageID)
	}
	if !msg.HasAttachment() {
		return nil, v1.ErrorAttachmentNotFound("message %d has no attachment", messageID)
	}
	body, contentType, err := uc.attachments.Open(ctx, msg.AttachmentPath)
	if err != nil {
		return nil, err
	}
	return &Attachment{Body: body, ContentType: contentType, Filename: path.Base(msg.AttachmentPath)}, nil
}
