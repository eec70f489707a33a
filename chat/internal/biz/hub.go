package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxFrameSize   = 64 << 10
	sendBufferSize = 256
)

// EventSource 跨节点事件来源，如 Redis 订阅
type EventSource interface {
	Subscribe(ctx context.Context, handler func(channel, event string, payload json.RawMessage)) error
}

// Frame websocket 上下行帧
type Frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type subscribeData struct {
	Channel string `json:"channel"`
	Auth    string `json:"auth"`
}

// Client 一个 websocket 连接
type Client struct {
	Conn     *websocket.Conn
	Send     chan []byte
	SocketID string
	UserID   uint64
	channels map[string]struct{}
	once     sync.Once
}

// Hub 管理连接与频道订阅，把广播事件推送给订阅者
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	channels map[string]map[string]*Client
	log      *log.Helper
	authz    *ChannelAuthorizer
}

// NewHub 创建连接管理器，source 非空时订阅跨节点事件
func NewHub(logger log.Logger, authz *ChannelAuthorizer, source EventSource) (*Hub, func()) {
	h := &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[string]*Client),
		log:      log.NewHelper(logger),
		authz:    authz,
	}
	ctx, cancel := context.WithCancel(context.Background())
	if source != nil {
		go func() {
			for {
				err := source.Subscribe(ctx, h.Dispatch)
				if ctx.Err() != nil {
					return
				}
				h.log.Errorf("event source stopped, resubscribe in 2s: %v", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(2 * time.Second):
				}
			}
		}()
	}
	cleanup := func() {
		cancel()
		h.mu.Lock()
		clients := make([]*Client, 0, len(h.clients))
		for _, c := range h.clients {
			clients = append(clients, c)
		}
		h.mu.Unlock()
		for _, c := range clients {
			h.unregister(c)
		}
		h.log.Info("closing the hub resources")
	}
	return h, cleanup
}

// Publish 实现 Broadcaster，单节点部署时直接推送本地连接
func (h *Hub) Publish(ctx context.Context, channel, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	h.Dispatch(channel, event, data)
	return nil
}

// Dispatch 推送事件到频道的所有本地订阅者
func (h *Hub) Dispatch(channel, event string, payload json.RawMessage) {
	frame, err := json.Marshal(&Frame{Event: event, Channel: channel, Data: payload})
	if err != nil {
		h.log.Errorf("marshal frame failed. channel=%s, error=%v", channel, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.channels[channel] {
		select {
		case c.Send <- frame:
		default:
			h.log.Warnf("client send buffer full, drop event. socket_id=%s, channel=%s", c.SocketID, channel)
		}
	}
}

// Count 返回当前连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribers 返回频道订阅数
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Serve 接管一个已升级的连接，阻塞到连接关闭
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, userID uint64) {
	c := &Client{
		Conn:     conn,
		Send:     make(chan []byte, sendBufferSize),
		SocketID: NewSocketID(),
		UserID:   userID,
		channels: make(map[string]struct{}),
	}
	h.mu.Lock()
	h.clients[c.SocketID] = c
	h.mu.Unlock()

	established, _ := json.Marshal(map[string]string{"socket_id": c.SocketID})
	h.send(c, &Frame{Event: "connection_established", Data: established})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go h.writePump(ctx, c)
	h.readPump(ctx, c)
}

func (h *Hub) unregister(c *Client) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c.SocketID)
		for ch := range c.channels {
			if subs, ok := h.channels[ch]; ok {
				delete(subs, c.SocketID)
				if len(subs) == 0 {
					delete(h.channels, ch)
				}
			}
		}
		close(c.Send)
		h.mu.Unlock()
		_ = c.Conn.Close()
	})
}

func (h *Hub) readPump(ctx context.Context, c *Client) {
	defer h.unregister(c)
	c.Conn.SetReadLimit(maxFrameSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithContext(ctx).Warnf("read message error. socket_id=%s, error=%v", c.SocketID, err)
			}
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.sendError(c, "", "malformed frame")
			continue
		}
		h.handleFrame(ctx, c, &frame)
	}
}

func (h *Hub) handleFrame(ctx context.Context, c *Client, frame *Frame) {
	switch frame.Event {
	case "ping":
		h.send(c, &Frame{Event: "pong"})
	case "subscribe":
		var sub subscribeData
		if err := json.Unmarshal(frame.Data, &sub); err != nil || sub.Channel == "" {
			h.sendError(c, "", "subscribe requires a channel")
			return
		}
		if err := h.authz.VerifySubscription(c.SocketID, sub.Channel, sub.Auth); err != nil {
			h.log.WithContext(ctx).Infof("subscription rejected. socket_id=%s, user_id=%d, channel=%s", c.SocketID, c.UserID, sub.Channel)
			h.sendError(c, sub.Channel, "subscription rejected")
			return
		}
		h.subscribe(c, sub.Channel)
		h.send(c, &Frame{Event: "subscription_succeeded", Channel: sub.Channel})
	case "unsubscribe":
		var sub subscribeData
		if err := json.Unmarshal(frame.Data, &sub); err == nil {
			h.unsubscribe(c, sub.Channel)
		}
	default:
		h.log.WithContext(ctx).Debugf("ignore client event %q. socket_id=%s", frame.Event, c.SocketID)
	}
}

func (h *Hub) subscribe(c *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.SocketID]; !ok {
		return
	}
	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[string]*Client)
		h.channels[channel] = subs
	}
	subs[c.SocketID] = c
	c.channels[channel] = struct{}{}
}

func (h *Hub) unsubscribe(c *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(c.channels, channel)
	if subs, ok := h.channels[channel]; ok {
		delete(subs, c.SocketID)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
}

func (h *Hub) send(c *Client, frame *Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.SocketID]; !ok {
		return
	}
	select {
	case c.Send <- data:
	default:
		h.log.Warnf("client send buffer full. socket_id=%s", c.SocketID)
	}
}

func (h *Hub) sendError(c *Client, channel, message string) {
	data, _ := json.Marshal(map[string]string{"message": message})
	h.send(c, &Frame{Event: "subscription_error", Channel: channel, Data: data})
}

func (h *Hub) writePump(ctx context.Context, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.unregister(c)
	}()
	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.log.WithContext(ctx).Warnf("write message error. socket_id=%s, error=%v", c.SocketID, err)
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// NewSocketID 生成 "<数字>.<数字>" 形式的连接ID
func NewSocketID() string {
	return fmt.Sprintf("%d.%d", rand.Uint32(), rand.Uint32())
}
