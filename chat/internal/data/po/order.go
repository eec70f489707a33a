package po

import (
	"time"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
)

// Order 主站订单表，只读
type Order struct {
	ID         uint64     `gorm:"primaryKey"`
	UserID     uint64     `gorm:"column:user_id"`
	DeliveryID *uint64    `gorm:"column:delivery_id"`
	AssignedAt *time.Time `gorm:"column:assigned_at"`
	Status     string     `gorm:"column:status"`
}

// TableName 设置表名
func (Order) TableName() string {
	return "orders"
}

func (o *Order) ToBo() *bo.Order {
	order := &bo.Order{
		ID:         o.ID,
		UserID:     o.UserID,
		AssignedAt: o.AssignedAt,
		Status:     o.Status,
	}
	if o.DeliveryID != nil {
		order.DeliveryID = *o.DeliveryID
	}
	return order
}
