package service

import (
	"context"
	"net/http"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/auth"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/middleware"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 私有频道由订阅签名保护，不校验 Origin
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
)

var _ v1.BroadcastHTTPServer = (*BroadcastService)(nil)

type BroadcastService struct {
	log       *log.Helper
	requester *biz.Requester
	authz     *biz.ChannelAuthorizer
	hub       *biz.Hub
	verifier  middleware.TokenVerifier
}

func NewBroadcastService(logger log.Logger, requester *biz.Requester, authz *biz.ChannelAuthorizer, hub *biz.Hub,
	verifier middleware.TokenVerifier) *BroadcastService {
	return &BroadcastService{
		log:       log.NewHelper(logger),
		requester: requester,
		authz:     authz,
		hub:       hub,
		verifier:  verifier,
	}
}

func (s *BroadcastService) ChannelAuth(ctx context.Context, req *v1.ChannelAuthRequest) (*v1.ChannelAuthReply, error) {
	var user *bo.User
	if uid := auth.GetUserID(ctx); uid != 0 {
		u, err := s.requester.User(ctx, uid)
		if err != nil {
			return nil, err
		}
		user = u
	}
	grant, err := s.authz.Authorize(ctx, user, req.ChannelName, req.SocketId)
	if err != nil {
		return nil, err
	}
	return &v1.ChannelAuthReply{Auth: grant.Auth, ChannelData: grant.ChannelData}, nil
}

// ServeWS 升级为 websocket 连接，令牌可放在 token 查询参数或 Authorization 头
// 匿名连接只能订阅公共频道
func (s *BroadcastService) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = middleware.BearerToken(r.Header.Get("Authorization"))
	}
	var uid uint64
	if token != "" {
		id, err := s.verifier.VerifyAccessToken(r.Context(), token)
		if err != nil {
			if !errors.Is(err, middleware.ErrUnauthenticated) {
				s.log.WithContext(r.Context()).Errorf("verify websocket token failed. error=%v", err)
			}
			middleware.ErrorEncoder(w, r, err)
			return
		}
		uid = id
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithContext(r.Context()).Errorf("WebSocket upgrade error: %v", err)
		return
	}
	s.log.WithContext(r.Context()).Debugf("Client connected: %s, user_id=%d", conn.RemoteAddr(), uid)
	// 请求超时不作用于长连接
	s.hub.Serve(context.WithoutCancel(r.Context()), conn, uid)
}
