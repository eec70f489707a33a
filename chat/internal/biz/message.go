package biz

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

const defaultMaxMessageLength = 1000

// OrderRepo 外部订单目录，只读
type OrderRepo interface {
	// GetOrder 订单不存在时返回 ORDER_NOT_FOUND
	GetOrder(ctx context.Context, id uint64) (*bo.Order, error)
}

// UserRepo 外部用户目录，只读
type UserRepo interface {
	GetUser(ctx context.Context, id uint64) (*bo.User, error)
	ListIDsByRoles(ctx context.Context, roles []string) ([]uint64, error)
}

// MessageRepo 消息持久化
type MessageRepo interface {
	Create(ctx context.Context, msg *bo.Message) error
	// GetByJobID 没有记录时返回 nil, nil
	GetByJobID(ctx context.Context, jobID string) (*bo.Message, error)
	Get(ctx context.Context, orderID, messageID uint64) (*bo.Message, error)
	List(ctx context.Context, filter *bo.MessageFilter) ([]*bo.Message, error)
	MarkRead(ctx context.Context, filter *bo.MessageFilter, readerID uint64, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, filter *bo.MessageFilter, readerID uint64) (int64, error)
	Stats(ctx context.Context, filter *bo.MessageFilter, readerID uint64, assignedAt *time.Time) (*bo.ChatStats, error)
}

// MessageStore 订单消息存储，所有查询按角色可见范围过滤
type MessageStore struct {
	repo      MessageRepo
	maxLength int
	log       *log.Helper
	now       func() time.Time
}

// NewMessageStore 创建消息存储
func NewMessageStore(cb *conf.Bootstrap, repo MessageRepo, logger log.Logger) *MessageStore {
	maxLength := defaultMaxMessageLength
	if cb.Chat != nil && cb.Chat.MaxMessageLength > 0 {
		maxLength = cb.Chat.MaxMessageLength
	}
	return &MessageStore{
		repo:      repo,
		maxLength: maxLength,
		log:       log.NewHelper(logger),
		now:       time.Now,
	}
}

// MaxLength 消息最大长度，按字符计
func (s *MessageStore) MaxLength() int {
	return s.maxLength
}

func scope(orderID uint64, role bo.Role, assignedAt *time.Time) *bo.MessageFilter {
	f := &bo.MessageFilter{OrderID: orderID}
	if role == bo.RoleDelivery {
		f.Since = assignedAt
	}
	return f
}

// ListForOrder 按时间正序返回订单消息
func (s *MessageStore) ListForOrder(ctx context.Context, orderID uint64, role bo.Role, assignedAt *time.Time) ([]*bo.Message, error) {
	return s.repo.List(ctx, scope(orderID, role, assignedAt))
}

// Create 校验并保存消息
func (s *MessageStore) Create(ctx context.Context, msg *bo.Message) (*bo.Message, error) {
	if err := ValidateMessage(msg.Body, msg.HasAttachment(), s.maxLength); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		msg.Type = bo.MessageTypeText
	}
	if err := ValidateMessageType(msg.Type, msg.HasAttachment()); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkRead 将他人发送的未读消息标为已读，返回更新条数
func (s *MessageStore) MarkRead(ctx context.Context, orderID, readerID uint64, role bo.Role, assignedAt *time.Time) (int64, error) {
	return s.repo.MarkRead(ctx, scope(orderID, role, assignedAt), readerID, s.now())
}

// UnreadCount 统计可见范围内他人发送的未读消息数
func (s *MessageStore) UnreadCount(ctx context.Context, orderID, readerID uint64, role bo.Role, assignedAt *time.Time) (int64, error) {
	return s.repo.UnreadCount(ctx, scope(orderID, role, assignedAt), readerID)
}

// Stats 可见范围内的消息统计，骑手只统计指派之后的消息
func (s *MessageStore) Stats(ctx context.Context, orderID, readerID uint64, role bo.Role, assignedAt *time.Time) (*bo.ChatStats, error) {
	return s.repo.Stats(ctx, scope(orderID, role, assignedAt), readerID, assignedAt)
}

// ValidateMessage 正文不能为空（有附件除外），且不超过最大长度
func ValidateMessage(body string, hasAttachment bool, maxLength int) error {
	if strings.TrimSpace(body) == "" && !hasAttachment {
		return v1.ErrorValidationFailed("message body is required")
	}
	if n := utf8.RuneCountInString(body); n > maxLength {
		return v1.ErrorValidationFailed("message body is %d characters, max is %d", n, maxLength)
	}
	return nil
}

// ValidateMessageType 类型必须与是否有附件一致
func ValidateMessageType(t bo.MessageType, hasAttachment bool) error {
	switch t {
	case bo.MessageTypeText:
		if hasAttachment {
			return v1.ErrorValidationFailed("text message cannot carry an attachment")
		}
	case bo.MessageTypeImage, bo.MessageTypeFile:
		if !hasAttachment {
			return v1.ErrorValidationFailed("%s message requires an attachment", t)
		}
	default:
		return v1.ErrorValidationFailed("unknown message type %q", t)
	}
	return nil
}
