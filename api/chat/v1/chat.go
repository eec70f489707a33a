package v1

import "time"

// User 消息发送者
type User struct {
	Id   uint64 `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Message 订单聊天消息
type Message struct {
	Id                uint64     `json:"id"`
	OrderId           uint64     `json:"order_id"`
	UserId            uint64     `json:"user_id"`
	Message           string     `json:"message"`
	MessageType       string     `json:"message_type"`
	FilePath          string     `json:"file_path,omitempty"`
	IsDeliveryMessage bool       `json:"is_delivery_message"`
	IsRead            bool       `json:"is_read"`
	ReadAt            *time.Time `json:"read_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	User              *User      `json:"user,omitempty"`
}

// OrderRequest 路径中只带订单号的请求
type OrderRequest struct {
	OrderId uint64 `json:"id"`
}

type ListMessagesReply struct {
	Messages    []*Message `json:"messages"`
	UserRole    string     `json:"user_role"`
	UnreadCount int64      `json:"unread_count"`
}

// SendMessageRequest JSON 形式的发送请求，附件走 multipart
type SendMessageRequest struct {
	OrderId     uint64 `json:"id"`
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
}

type SendMessageReply struct {
	Status  string   `json:"status"`
	JobId   string   `json:"job_id,omitempty"`
	Message *Message `json:"message,omitempty"`
}

type MarkReadReply struct {
	UpdatedCount int64 `json:"updated_count"`
}

type UnreadCountReply struct {
	UnreadCount int64 `json:"unread_count"`
}

type ChatStatsReply struct {
	TotalMessages       int64      `json:"total_messages"`
	UnreadMessages      int64      `json:"unread_messages"`
	DeliveryMessages    int64      `json:"delivery_messages"`
	PreDeliveryMessages int64      `json:"pre_delivery_messages"`
	LastMessageAt       *time.Time `json:"last_message_at"`
}

// Location 骑手位置
type Location struct {
	OrderId    uint64    `json:"order_id"`
	DeliveryId uint64    `json:"delivery_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Heading    *float64  `json:"heading,omitempty"`
	Speed      *float64  `json:"speed,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

type UpdateLocationRequest struct {
	OrderId   uint64   `json:"id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
}

// LocationReply 没有上报记录时 location 为 null
type LocationReply struct {
	Location *Location `json:"location"`
}

// ChannelAuthRequest 私有频道订阅鉴权，支持表单和 JSON
type ChannelAuthRequest struct {
	SocketId    string `json:"socket_id"`
	ChannelName string `json:"channel_name"`
}

type ChannelAuthReply struct {
	Auth        string `json:"auth"`
	ChannelData string `json:"channel_data,omitempty"`
}

type PushKeys struct {
	P256Dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type PushSubscriptionRequest struct {
	Endpoint string   `json:"endpoint"`
	Keys     PushKeys `json:"keys"`
}

type EmptyReply struct{}
