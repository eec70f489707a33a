package po

import (
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/model"
)

// PushSubscription Web Push 订阅，endpoint 全局唯一
// 数据库表名: push_subscriptions
type PushSubscription struct {
	model.BaseModel
	UserID   uint64 `json:"user_id" gorm:"index:idx_user"`
	Endpoint string `json:"endpoint" gorm:"type:varchar(512);index:idx_endpoint,unique"`
	P256dh   string `json:"p256dh" gorm:"type:varchar(255)"`
	Auth     string `json:"auth" gorm:"type:varchar(255)"`
}

// TableName 设置表名
func (PushSubscription) TableName() string {
	return "push_subscriptions"
}

func NewPushSubscriptionFromBo(s *bo.PushSubscription) *PushSubscription {
	return &PushSubscription{
		UserID:   s.UserID,
		Endpoint: s.Endpoint,
		P256dh:   s.P256dh,
		Auth:     s.Auth,
	}
}

func (s *PushSubscription) ToBo() *bo.PushSubscription {
	return &bo.PushSubscription{
		UserID:   s.UserID,
		Endpoint: s.Endpoint,
		P256dh:   s.P256dh,
		Auth:     s.Auth,
	}
}
