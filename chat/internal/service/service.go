package service

import (
	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"

	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewChatService, NewLocationService, NewBroadcastService, NewPushService)

func toMessage(m *bo.Message) *v1.Message {
	if m == nil {
		return nil
	}
	out := &v1.Message{
		Id:                m.ID,
		OrderId:           m.OrderID,
		UserId:            m.UserID,
		Message:           m.Body,
		MessageType:       string(m.Type),
		FilePath:          m.AttachmentPath,
		IsDeliveryMessage: m.IsDeliveryMessage,
		IsRead:            m.IsRead,
		ReadAt:            m.ReadAt,
		CreatedAt:         m.CreatedAt,
	}
	if m.Sender != nil {
		out.User = &v1.User{Id: m.Sender.ID, Name: m.Sender.Name, Role: string(m.Sender.Role)}
	}
	return out
}

func toLocation(l *bo.Location) *v1.Location {
	if l == nil {
		return nil
	}
	return &v1.Location{
		OrderId:    l.OrderID,
		DeliveryId: l.DeliveryID,
		Latitude:   l.Latitude,
		Longitude:  l.Longitude,
		Heading:    l.Heading,
		Speed:      l.Speed,
		RecordedAt: l.RecordedAt,
	}
}
