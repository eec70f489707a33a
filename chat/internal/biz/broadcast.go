package biz

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/monitoring"

	"github.com/go-kratos/kratos/v2/log"
)

const notificationPreviewLength = 100

// Broadcaster 实时广播，按频道名发布事件
type Broadcaster interface {
	Publish(ctx context.Context, channel, event string, payload interface{}) error
}

// NotificationRepo 站内通知持久化
type NotificationRepo interface {
	CreateNotification(ctx context.Context, n *bo.Notification) error
}

// PushGateway 推送网关，返回成功送达的设备数
type PushGateway interface {
	SendToUser(ctx context.Context, userID uint64, title, body string, data map[string]string) (int, error)
}

// Fanout 新消息扇出：订单频道广播 + 参与者通知
type Fanout struct {
	log           *log.Helper
	broadcaster   Broadcaster
	notifications NotificationRepo
	push          PushGateway
	users         UserRepo
	policy        *AccessPolicy
}

// NewFanout 创建扇出组件
func NewFanout(logger log.Logger, broadcaster Broadcaster, notifications NotificationRepo,
	push PushGateway, users UserRepo, policy *AccessPolicy) *Fanout {
	return &Fanout{
		log:           log.NewHelper(logger),
		broadcaster:   broadcaster,
		notifications: notifications,
		push:          push,
		users:         users,
		policy:        policy,
	}
}

// OrderChannel 订单私有频道
func OrderChannel(orderID uint64) string {
	return PrivateChannel("order." + strconv.FormatUint(orderID, 10))
}

// UserChannel 用户私有频道
func UserChannel(userID uint64) string {
	return PrivateChannel("user." + strconv.FormatUint(userID, 10))
}

// Publish 广播消息并通知其他参与者，任何失败都只记录不返回
func (f *Fanout) Publish(ctx context.Context, msg *bo.Message, order *bo.Order, sender *bo.User, role bo.Role) *bo.FanoutReport {
	report := &bo.FanoutReport{}
	senderSummary := bo.UserSummary{ID: sender.ID, Name: sender.Name, Role: role}
	if msg.Sender == nil {
		msg.Sender = &senderSummary
	}
	event := &bo.MessageEvent{
		Sender:  senderSummary,
		Order:   order.Summary(),
		Message: msg.View(),
	}
	channel := OrderChannel(order.ID)
	if err := f.broadcaster.Publish(ctx, channel, bo.EventChatMessage, event); err != nil {
		err = v1.ErrorBroadcastFailed("publish %s: %v", channel, err)
		report.Failures = append(report.Failures, err)
		f.log.WithContext(ctx).Errorf("broadcast failed. channel=%s, message_id=%d, error=%v", channel, msg.ID, err)
	} else {
		report.Published = true
	}
	monitoring.RecordFanout(ctx, "broadcast", report.Published)

	recipients, err := f.Recipients(ctx, order, sender.ID, role)
	if err != nil {
		// 管理员列表查询失败时仍通知订单双方
		report.Failures = append(report.Failures, err)
		f.log.WithContext(ctx).Errorf("resolve admin recipients failed. order_id=%d, error=%v", order.ID, err)
	}
	report.Recipients = recipients

	title := fmt.Sprintf("New message on order #%d", order.ID)
	body := fmt.Sprintf("%s: %s", sender.Name, Preview(msg.Body, notificationPreviewLength))
	data := map[string]string{
		"order_id":     strconv.FormatUint(order.ID, 10),
		"message_id":   strconv.FormatUint(msg.ID, 10),
		"sender_id":    strconv.FormatUint(sender.ID, 10),
		"message_type": string(msg.Type),
		"type":         bo.NotificationMessageReceived,
	}
	for _, uid := range recipients {
		n := &bo.Notification{
			UserID: uid,
			Type:   bo.NotificationMessageReceived,
			Title:  title,
			Body:   body,
			Data:   data,
		}
		if err := f.notifications.CreateNotification(ctx, n); err != nil {
			report.Failures = append(report.Failures, v1.ErrorBroadcastFailed("notify user %d: %v", uid, err))
			f.log.WithContext(ctx).Errorf("create notification failed. user_id=%d, order_id=%d, error=%v", uid, order.ID, err)
			monitoring.RecordFanout(ctx, "notification", false)
			continue
		}
		report.Notified++
		monitoring.RecordFanout(ctx, "notification", true)

		sent, err := f.push.SendToUser(ctx, uid, title, body, data)
		if err != nil {
			report.Failures = append(report.Failures, v1.ErrorBroadcastFailed("push user %d: %v", uid, err))
			f.log.WithContext(ctx).Warnf("push notification failed. user_id=%d, order_id=%d, error=%v", uid, order.ID, err)
			monitoring.RecordFanout(ctx, "push", false)
			continue
		}
		if sent > 0 {
			report.Pushed++
		}
		monitoring.RecordFanout(ctx, "push", true)
	}
	return report
}

// Recipients 按发送者角色计算通知对象，结果去重且不含发送者
func (f *Fanout) Recipients(ctx context.Context, order *bo.Order, senderID uint64, role bo.Role) ([]uint64, error) {
	seen := map[uint64]struct{}{senderID: {}}
	recipients := make([]uint64, 0, 4)
	add := func(uid uint64) {
		if uid == 0 {
			return
		}
		if _, ok := seen[uid]; ok {
			return
		}
		seen[uid] = struct{}{}
		recipients = append(recipients, uid)
	}
	var withAdmins bool
	switch role {
	case bo.RoleClient:
		add(order.DeliveryID)
		withAdmins = true
	case bo.RoleDelivery:
		add(order.UserID)
		withAdmins = true
	default:
		add(order.UserID)
		add(order.DeliveryID)
	}
	if !withAdmins {
		return recipients, nil
	}
	admins, err := f.users.ListIDsByRoles(ctx, f.policy.AdminRoles())
	if err != nil {
		return recipients, err
	}
	for _, uid := range admins {
		add(uid)
	}
	return recipients, nil
}

// Preview 截断到 max 个字符，截断时追加省略号
func Preview(body string, max int) string {
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	runes := []rune(body)
	return string(runes[:max]) + "..."
}
