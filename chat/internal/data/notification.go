package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/data/po"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/auth"

	"github.com/go-kratos/kratos/v2/log"
)

var _ biz.NotificationRepo = (*notificationRepo)(nil)

type notificationRepo struct {
	data      *Data
	log       *log.Helper
	sonyFlake *auth.Sonyflake
}

// NewNotificationRepo 站内通知仓库
func NewNotificationRepo(data *Data, logger log.Logger) biz.NotificationRepo {
	return &notificationRepo{
		data:      data,
		log:       log.NewHelper(logger),
		sonyFlake: auth.NewSonyflake(),
	}
}

func (r *notificationRepo) CreateNotification(ctx context.Context, n *bo.Notification) error {
	var err error
	if n.ID, err = r.sonyFlake.GenerateID(); err != nil {
		return errors.Join(err, errors.New("failed to generate notification ID"))
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if err := r.data.db.WithContext(ctx).Create(po.NewNotificationFromBo(n)).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}
