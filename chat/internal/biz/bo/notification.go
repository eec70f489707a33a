package bo

import "time"

const NotificationMessageReceived = "message_received"

// Notification 站内通知
type Notification struct {
	ID        uint64
	UserID    uint64
	Type      string
	Title     string
	Body      string
	Data      map[string]string
	ReadAt    *time.Time
	CreatedAt time.Time
}

// PushSubscription Web Push 订阅
type PushSubscription struct {
	UserID   uint64 `json:"-"`
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}
