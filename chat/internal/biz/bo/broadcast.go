package bo

import "time"

const (
	EventChatMessage      = "chat.message"
	EventDeliveryLocation = "delivery.location"
)

// MessageEvent 新消息广播负载
type MessageEvent struct {
	Sender  UserSummary  `json:"sender"`
	Order   OrderSummary `json:"order"`
	Message MessageView  `json:"message"`
}

// FanoutReport 一次扇出的结果
type FanoutReport struct {
	Published  bool
	Recipients []uint64
	Notified   int
	Pushed     int
	Failures   []error
}

// ChannelGrant 私有频道订阅授权
type ChannelGrant struct {
	Auth        string `json:"auth"`
	ChannelData string `json:"channel_data,omitempty"`
}

// Location 骑手位置
type Location struct {
	OrderID    uint64    `json:"order_id"`
	DeliveryID uint64    `json:"delivery_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Heading    *float64  `json:"heading,omitempty"`
	Speed      *float64  `json:"speed,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
