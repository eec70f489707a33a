package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/data/po"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/auth"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm/clause"
)

var _ biz.SubscriptionRepo = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	data      *Data
	log       *log.Helper
	sonyFlake *auth.Sonyflake
}

// NewSubscriptionRepo Web Push 订阅仓库
func NewSubscriptionRepo(data *Data, logger log.Logger) biz.SubscriptionRepo {
	return &subscriptionRepo{
		data:      data,
		log:       log.NewHelper(logger),
		sonyFlake: auth.NewSonyflake(),
	}
}

// SaveSubscription endpoint 存在则更新归属和密钥
func (r *subscriptionRepo) SaveSubscription(ctx context.Context, sub *bo.PushSubscription) error {
	s := po.NewPushSubscriptionFromBo(sub)
	var err error
	if s.ID, err = r.sonyFlake.GenerateID(); err != nil {
		return errors.Join(err, errors.New("failed to generate subscription ID"))
	}
	err = r.data.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth", "updated_at"}),
	}).Create(s).Error
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepo) DeleteSubscription(ctx context.Context, userID uint64, endpoint string) error {
	err := r.data.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&po.PushSubscription{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepo) ListSubscriptions(ctx context.Context, userID uint64) ([]*bo.PushSubscription, error) {
	var rows []po.PushSubscription
	if err := r.data.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list push subscriptions: %w", err)
	}
	subs := make([]*bo.PushSubscription, len(rows))
	for i := range rows {
		subs[i] = rows[i].ToBo()
	}
	return subs, nil
}
