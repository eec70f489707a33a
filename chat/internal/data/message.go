package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/data/po"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/auth"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

var _ biz.MessageRepo = (*messageRepo)(nil)

// messageRepo 聊天消息仓库实现
type messageRepo struct {
	data      *Data
	log       *log.Helper
	sonyFlake *auth.Sonyflake
}

// NewMessageRepo 创建消息仓库实例
func NewMessageRepo(data *Data, logger log.Logger) biz.MessageRepo {
	return &messageRepo{
		data:      data,
		log:       log.NewHelper(logger),
		sonyFlake: auth.NewSonyflake(),
	}
}

// scoped 订单范围 + 骑手可见时间窗口
func (r *messageRepo) scoped(ctx context.Context, filter *bo.MessageFilter) *gorm.DB {
	tx := r.data.db.WithContext(ctx).Model(&po.Message{}).Where("order_id = ?", filter.OrderID)
	if filter.Since != nil {
		tx = tx.Where("created_at >= ?", *filter.Since)
	}
	return tx
}

// Create 保存消息，同一 job_id 并发写入时返回已存在的记录
func (r *messageRepo) Create(ctx context.Context, msg *bo.Message) error {
	var err error
	if msg.ID, err = r.sonyFlake.GenerateID(); err != nil {
		return errors.Join(err, errors.New("failed to generate message ID"))
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	m := po.NewMessageFromBo(msg)
	if err := r.data.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && msg.JobID != "" {
			existing, getErr := r.GetByJobID(ctx, msg.JobID)
			if getErr == nil && existing != nil {
				r.log.WithContext(ctx).Infof("message for job already exists. job_id=%s, message_id=%d", msg.JobID, existing.ID)
				*msg = *existing
				return nil
			}
		}
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *messageRepo) GetByJobID(ctx context.Context, jobID string) (*bo.Message, error) {
	var m po.Message
	err := r.data.db.WithContext(ctx).Where("job_id = ?", jobID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message by job id: %w", err)
	}
	return m.ToBo(), nil
}

func (r *messageRepo) Get(ctx context.Context, orderID, messageID uint64) (*bo.Message, error) {
	var m po.Message
	err := r.data.db.WithContext(ctx).Where("order_id = ? AND id = ?", orderID, messageID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, v1.ErrorMessageNotFound("message %d not found on order %d", messageID, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m.ToBo(), nil
}

// List 按 created_at, id 正序返回，并附带发送者姓名
func (r *messageRepo) List(ctx context.Context, filter *bo.MessageFilter) ([]*bo.Message, error) {
	var rows []po.Message
	if err := r.scoped(ctx, filter).Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if len(rows) == 0 {
		return []*bo.Message{}, nil
	}
	seen := make(map[uint64]struct{}, 4)
	ids := make([]uint64, 0, 4)
	for _, m := range rows {
		if _, ok := seen[m.UserID]; !ok {
			seen[m.UserID] = struct{}{}
			ids = append(ids, m.UserID)
		}
	}
	var users []po.User
	if err := r.data.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load message senders: %w", err)
	}
	names := make(map[uint64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	result := make([]*bo.Message, len(rows))
	for i := range rows {
		msg := rows[i].ToBo()
		msg.Sender = &bo.UserSummary{ID: msg.UserID, Name: names[msg.UserID]}
		result[i] = msg
	}
	return result, nil
}

func (r *messageRepo) MarkRead(ctx context.Context, filter *bo.MessageFilter, readerID uint64, at time.Time) (int64, error) {
	result := r.scoped(ctx, filter).
		Where("user_id <> ?", readerID).
		Where("is_read = ?", false).
		Updates(map[string]interface{}{
			"is_read":    true,
			"read_at":    at,
			"updated_at": at,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark messages as read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *messageRepo) UnreadCount(ctx context.Context, filter *bo.MessageFilter, readerID uint64) (int64, error) {
	var n int64
	err := r.scoped(ctx, filter).
		Where("user_id <> ?", readerID).
		Where("is_read = ?", false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return n, nil
}

type statsRow struct {
	Total       int64
	Unread      int64
	Delivery    int64
	PreDelivery int64
}

// Stats 一次聚合查询算出统计，pre_delivery 为指派前发送的消息
func (r *messageRepo) Stats(ctx context.Context, filter *bo.MessageFilter, readerID uint64, assignedAt *time.Time) (*bo.ChatStats, error) {
	preDelivery := "COUNT(*)"
	args := []interface{}{readerID}
	if assignedAt != nil {
		preDelivery = "COALESCE(SUM(CASE WHEN created_at < ? THEN 1 ELSE 0 END), 0)"
		args = append(args, *assignedAt)
	}
	var row statsRow
	err := r.scoped(ctx, filter).Select(
		"COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN user_id <> ? AND is_read = 0 THEN 1 ELSE 0 END), 0) AS unread, "+
			"COALESCE(SUM(CASE WHEN is_delivery_message = 1 THEN 1 ELSE 0 END), 0) AS delivery, "+
			preDelivery+" AS pre_delivery",
		args...,
	).Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate chat stats: %w", err)
	}
	stats := &bo.ChatStats{
		TotalMessages:       row.Total,
		UnreadMessages:      row.Unread,
		DeliveryMessages:    row.Delivery,
		PreDeliveryMessages: row.PreDelivery,
	}
	if row.Total > 0 {
		var last po.Message
		if err := r.scoped(ctx, filter).Order("created_at DESC").Order("id DESC").Limit(1).Take(&last).Error; err != nil {
			return nil, fmt.Errorf("failed to get last message: %w", err)
		}
		t := last.CreatedAt
		stats.LastMessageAt = &t
	}
	return stats, nil
}
