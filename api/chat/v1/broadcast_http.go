package v1

import (
	context "context"

	http "github.com/go-kratos/kratos/v2/transport/http"
)

const OperationBroadcastChannelAuth = "/api.chat.v1.Broadcast/ChannelAuth"
const OperationPushSubscribe = "/api.chat.v1.Push/Subscribe"
const OperationPushUnsubscribe = "/api.chat.v1.Push/Unsubscribe"

type BroadcastHTTPServer interface {
	// ChannelAuth 私有频道订阅签名
	ChannelAuth(context.Context, *ChannelAuthRequest) (*ChannelAuthReply, error)
}

func RegisterBroadcastHTTPServer(s *http.Server, srv BroadcastHTTPServer) {
	r := s.Route("/")
	r.POST("/broadcasting/auth", _Broadcast_ChannelAuth0_HTTP_Handler(srv))
}

func _Broadcast_ChannelAuth0_HTTP_Handler(srv BroadcastHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ChannelAuthRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationBroadcastChannelAuth)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ChannelAuth(ctx, req.(*ChannelAuthRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ChannelAuthReply)
		return ctx.Result(200, reply)
	}
}

type PushHTTPServer interface {
	Subscribe(context.Context, *PushSubscriptionRequest) (*EmptyReply, error)
	Unsubscribe(context.Context, *PushSubscriptionRequest) (*EmptyReply, error)
}

func RegisterPushHTTPServer(s *http.Server, srv PushHTTPServer) {
	r := s.Route("/")
	r.POST("/push/subscriptions", _Push_Subscribe0_HTTP_Handler(srv))
	r.DELETE("/push/subscriptions", _Push_Unsubscribe0_HTTP_Handler(srv))
}

func _Push_Subscribe0_HTTP_Handler(srv PushHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in PushSubscriptionRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationPushSubscribe)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Subscribe(ctx, req.(*PushSubscriptionRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*EmptyReply)
		return ctx.Result(200, reply)
	}
}

func _Push_Unsubscribe0_HTTP_Handler(srv PushHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in PushSubscriptionRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationPushUnsubscribe)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Unsubscribe(ctx, req.(*PushSubscriptionRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*EmptyReply)
		return ctx.Result(200, reply)
	}
}
