package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/go-kratos/kratos/v2/log"
)

const defaultPushTTL = 60

var _ biz.PushGateway = (*webPushGateway)(nil)

// webPushGateway 通过 VAPID Web Push 推送到用户的所有设备
type webPushGateway struct {
	subs    biz.SubscriptionRepo
	log     *log.Helper
	enabled bool
	options webpush.Options
}

type pushPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// NewPushGateway 未启用或缺少 VAPID 密钥时只记录日志
func NewPushGateway(cb *conf.Bootstrap, subs biz.SubscriptionRepo, logger log.Logger) biz.PushGateway {
	g := &webPushGateway{
		subs: subs,
		log:  log.NewHelper(logger),
	}
	c := cb.Push
	if c == nil || !c.Enabled {
		return g
	}
	if c.VapidPublicKey == "" || c.VapidPrivateKey == "" {
		g.log.Warn("push enabled without VAPID keys, push notifications are disabled")
		return g
	}
	timeout := c.Timeout.AsDuration()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := c.Ttl
	if ttl <= 0 {
		ttl = defaultPushTTL
	}
	g.enabled = true
	g.options = webpush.Options{
		HTTPClient:      &http.Client{Timeout: timeout},
		Subscriber:      c.Subscriber,
		VAPIDPublicKey:  c.VapidPublicKey,
		VAPIDPrivateKey: c.VapidPrivateKey,
		TTL:             ttl,
		Urgency:         webpush.UrgencyHigh,
	}
	return g
}

// SendToUser 返回成功送达的订阅数，失效的订阅（404/410）直接删除
func (g *webPushGateway) SendToUser(ctx context.Context, userID uint64, title, body string, data map[string]string) (int, error) {
	if !g.enabled {
		g.log.WithContext(ctx).Debugf("push disabled, skip. user_id=%d, title=%s", userID, title)
		return 0, nil
	}
	subs, err := g.subs.ListSubscriptions(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(subs) == 0 {
		return 0, nil
	}
	payload, err := json.Marshal(&pushPayload{Title: title, Body: body, Data: data})
	if err != nil {
		return 0, fmt.Errorf("marshal push payload: %w", err)
	}

	var (
		sent    int
		lastErr error
	)
	for _, sub := range subs {
		resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
		}, &g.options)
		if err != nil {
			lastErr = err
			g.log.WithContext(ctx).Warnf("send web push failed. user_id=%d, error=%v", userID, err)
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
			g.log.WithContext(ctx).Infof("push subscription expired, deleting. user_id=%d, status=%d", userID, resp.StatusCode)
			if err := g.subs.DeleteSubscription(ctx, userID, sub.Endpoint); err != nil {
				g.log.WithContext(ctx).Errorf("delete expired subscription failed. user_id=%d, error=%v", userID, err)
			}
		case resp.StatusCode >= 400:
			lastErr = fmt.Errorf("push service responded %d", resp.StatusCode)
		default:
			sent++
		}
	}
	if sent == 0 && lastErr != nil {
		return 0, lastErr
	}
	return sent, nil
}
