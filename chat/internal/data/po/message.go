package po

import (
	"time"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/model"
)

// Message 订单聊天消息
// 数据库表名: order_chat_messages
type Message struct {
	model.BaseModel
	JobID             string     `json:"job_id" gorm:"type:varchar(64);index:idx_job_id,unique"`
	OrderID           uint64     `json:"order_id" gorm:"index:idx_order_read,priority:1"`
	UserID            uint64     `json:"user_id" gorm:"index:idx_user"`
	Message           string     `json:"message" gorm:"type:text"`
	MessageType       string     `json:"message_type" gorm:"type:varchar(16)"`
	FilePath          string     `json:"file_path" gorm:"type:varchar(255)"`
	IsDeliveryMessage bool       `json:"is_delivery_message"`
	IsRead            bool       `json:"is_read" gorm:"index:idx_order_read,priority:2"`
	ReadAt            *time.Time `json:"read_at" gorm:"precision:6"`
}

// TableName 设置表名
func (Message) TableName() string {
	return "order_chat_messages"
}

func NewMessageFromBo(m *bo.Message) *Message {
	return &Message{
		BaseModel: model.BaseModel{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.CreatedAt,
		},
		JobID:             m.JobID,
		OrderID:           m.OrderID,
		UserID:            m.UserID,
		Message:           m.Body,
		MessageType:       string(m.Type),
		FilePath:          m.AttachmentPath,
		IsDeliveryMessage: m.IsDeliveryMessage,
		IsRead:            m.IsRead,
		ReadAt:            m.ReadAt,
	}
}

func (m *Message) ToBo() *bo.Message {
	return &bo.Message{
		ID:                m.ID,
		JobID:             m.JobID,
		OrderID:           m.OrderID,
		UserID:            m.UserID,
		Body:              m.Message,
		Type:              bo.MessageType(m.MessageType),
		AttachmentPath:    m.FilePath,
		IsDeliveryMessage: m.IsDeliveryMessage,
		IsRead:            m.IsRead,
		ReadAt:            m.ReadAt,
		CreatedAt:         m.CreatedAt,
	}
}
