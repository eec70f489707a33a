package bo

import "time"

// MessageType 消息类型
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
	// MessageTypeAuto 由附件 MIME 推断
	MessageTypeAuto MessageType = "auto"
)

// Message 订单聊天消息
type Message struct {
	ID                uint64
	JobID             string
	OrderID           uint64
	UserID            uint64
	Body              string
	Type              MessageType
	AttachmentPath    string
	IsDeliveryMessage bool
	IsRead            bool
	ReadAt            *time.Time
	CreatedAt         time.Time
	Sender            *UserSummary
}

// HasAttachment 是否带附件
func (m *Message) HasAttachment() bool {
	return m.AttachmentPath != ""
}

// MessageView 接口与广播中的消息结构
type MessageView struct {
	ID                uint64       `json:"id"`
	OrderID           uint64       `json:"order_id"`
	UserID            uint64       `json:"user_id"`
	Message           string       `json:"message"`
	MessageType       MessageType  `json:"message_type"`
	FilePath          string       `json:"file_path,omitempty"`
	IsDeliveryMessage bool         `json:"is_delivery_message"`
	IsRead            bool         `json:"is_read"`
	ReadAt            *time.Time   `json:"read_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	User              *UserSummary `json:"user,omitempty"`
}

func (m *Message) View() MessageView {
	return MessageView{
		ID:                m.ID,
		OrderID:           m.OrderID,
		UserID:            m.UserID,
		Message:           m.Body,
		MessageType:       m.Type,
		FilePath:          m.AttachmentPath,
		IsDeliveryMessage: m.IsDeliveryMessage,
		IsRead:            m.IsRead,
		ReadAt:            m.ReadAt,
		CreatedAt:         m.CreatedAt,
		User:              m.Sender,
	}
}

// ChatStats 聊天统计，与列表使用同一可见范围
type ChatStats struct {
	TotalMessages       int64      `json:"total_messages"`
	UnreadMessages      int64      `json:"unread_messages"`
	DeliveryMessages    int64      `json:"delivery_messages"`
	PreDeliveryMessages int64      `json:"pre_delivery_messages"`
	LastMessageAt       *time.Time `json:"last_message_at"`
}

// MessageFilter 消息查询范围
// Since 非空时只包含 created_at >= Since 的消息
type MessageFilter struct {
	OrderID uint64
	Since   *time.Time
}
