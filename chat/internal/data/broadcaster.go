package data

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

const defaultChannelPrefix = "chat:broadcast:"

// envelope Redis 频道中传输的事件
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func broadcastDriver(cb *conf.Bootstrap) (string, string) {
	driver, prefix := "redis", defaultChannelPrefix
	if c := cb.Broadcast; c != nil {
		if c.Driver != "" {
			driver = c.Driver
		}
		if c.ChannelPrefix != "" {
			prefix = c.ChannelPrefix
		}
	}
	return driver, prefix
}

// NewBroadcaster 按配置选择广播实现，启动后不再切换
// redis: 发布到 Redis，由各节点的 Hub 推送；local: 直接推送本节点连接
func NewBroadcaster(cb *conf.Bootstrap, data *Data, hub *biz.Hub, logger log.Logger) (biz.Broadcaster, error) {
	driver, prefix := broadcastDriver(cb)
	logg := log.NewHelper(logger)
	switch driver {
	case "redis":
		return &redisBroadcaster{data: data, prefix: prefix, log: logg}, nil
	case "local":
		return hub, nil
	case "log":
		return &logBroadcaster{log: logg}, nil
	case "null":
		return nullBroadcaster{}, nil
	default:
		return nil, fmt.Errorf("unknown broadcast driver %q", driver)
	}
}

var _ biz.Broadcaster = (*redisBroadcaster)(nil)

type redisBroadcaster struct {
	data   *Data
	prefix string
	log    *log.Helper
}

func (b *redisBroadcaster) Publish(ctx context.Context, channel, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg, err := json.Marshal(&envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.data.redis.Publish(ctx, b.prefix+channel, msg).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

type logBroadcaster struct {
	log *log.Helper
}

func (b *logBroadcaster) Publish(ctx context.Context, channel, event string, payload interface{}) error {
	data, _ := json.Marshal(payload)
	b.log.WithContext(ctx).Infof("broadcast. channel=%s, event=%s, payload=%s", channel, event, data)
	return nil
}

type nullBroadcaster struct{}

func (nullBroadcaster) Publish(context.Context, string, string, interface{}) error {
	return nil
}

var _ biz.EventSource = (*redisEventSource)(nil)

// redisEventSource 订阅所有广播频道，交给本节点的 Hub
type redisEventSource struct {
	data   *Data
	prefix string
	log    *log.Helper
}

// NewEventSource 只有 redis 驱动需要跨节点订阅
func NewEventSource(cb *conf.Bootstrap, data *Data, logger log.Logger) biz.EventSource {
	driver, prefix := broadcastDriver(cb)
	if driver != "redis" {
		return nil
	}
	return &redisEventSource{data: data, prefix: prefix, log: log.NewHelper(logger)}
}

func (s *redisEventSource) Subscribe(ctx context.Context, handler func(channel, event string, payload json.RawMessage)) error {
	pubsub := s.data.redis.PSubscribe(ctx, s.prefix+"*")
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe failed: %w", err)
	}
	s.log.Infof("subscribed to broadcast channels. pattern=%s*", s.prefix)
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis subscription closed")
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				s.log.Warnf("drop malformed broadcast. channel=%s, error=%v", msg.Channel, err)
				continue
			}
			handler(strings.TrimPrefix(msg.Channel, s.prefix), env.Event, env.Data)
		}
	}
}
