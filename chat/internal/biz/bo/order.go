package bo

import "time"

// Order 外部订单，只读
type Order struct {
	ID         uint64
	UserID     uint64
	DeliveryID uint64 // 0 表示未指派骑手
	AssignedAt *time.Time
	Status     string
}

// HasCourier 是否已指派骑手
func (o *Order) HasCourier() bool {
	return o.DeliveryID != 0
}

type OrderSummary struct {
	ID         uint64 `json:"id"`
	Status     string `json:"status"`
	UserID     uint64 `json:"user_id"`
	DeliveryID uint64 `json:"delivery_id,omitempty"`
}

func (o *Order) Summary() OrderSummary {
	return OrderSummary{
		ID:         o.ID,
		Status:     o.Status,
		UserID:     o.UserID,
		DeliveryID: o.DeliveryID,
	}
}
