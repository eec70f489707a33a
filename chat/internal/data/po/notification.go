package po

import (
	"time"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/model"
)

// Notification 站内通知
// 数据库表名: chat_notifications
type Notification struct {
	model.BaseModel
	UserID uint64            `json:"user_id" gorm:"index:idx_user_read,priority:1"`
	Type   string            `json:"type" gorm:"type:varchar(64)"`
	Title  string            `json:"title" gorm:"type:varchar(255)"`
	Body   string            `json:"body" gorm:"type:text"`
	Data   map[string]string `json:"data" gorm:"type:json;serializer:json"`
	ReadAt *time.Time        `json:"read_at" gorm:"index:idx_user_read,priority:2"`
}

// TableName 设置表名
func (Notification) TableName() string {
	return "chat_notifications"
}

func NewNotificationFromBo(n *bo.Notification) *Notification {
	return &Notification{
		BaseModel: model.BaseModel{ID: n.ID, CreatedAt: n.CreatedAt},
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Data:      n.Data,
		ReadAt:    n.ReadAt,
	}
}
