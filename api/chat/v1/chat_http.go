package v1

import (
	context "context"

	http "github.com/go-kratos/kratos/v2/transport/http"
	binding "github.com/go-kratos/kratos/v2/transport/http/binding"
)

// This is a compile-time assertion to ensure that this file
// is compatible with the kratos package it is being compiled against.
var _ = new(context.Context)
var _ = binding.EncodeURL

const OperationChatListMessages = "/api.chat.v1.Chat/ListMessages"
const OperationChatSendMessage = "/api.chat.v1.Chat/SendMessage"
const OperationChatMarkRead = "/api.chat.v1.Chat/MarkRead"
const OperationChatUnreadCount = "/api.chat.v1.Chat/UnreadCount"
const OperationChatChatStats = "/api.chat.v1.Chat/ChatStats"
const OperationChatDownloadAttachment = "/api.chat.v1.Chat/DownloadAttachment"
const OperationLocationUpdateLocation = "/api.chat.v1.Location/UpdateLocation"
const OperationLocationGetLocation = "/api.chat.v1.Location/GetLocation"

type ChatHTTPServer interface {
	// ListMessages 当前用户可见的订单消息
	ListMessages(context.Context, *OrderRequest) (*ListMessagesReply, error)
	// MarkRead 把对方发来的未读消息标记为已读
	MarkRead(context.Context, *OrderRequest) (*MarkReadReply, error)
	UnreadCount(context.Context, *OrderRequest) (*UnreadCountReply, error)
	ChatStats(context.Context, *OrderRequest) (*ChatStatsReply, error)
}

func RegisterChatHTTPServer(s *http.Server, srv ChatHTTPServer) {
	r := s.Route("/")
	r.GET("/orders/{id}/chat", _Chat_ListMessages0_HTTP_Handler(srv))
	r.PUT("/orders/{id}/chat/mark-read", _Chat_MarkRead0_HTTP_Handler(srv))
	r.GET("/orders/{id}/chat/unread", _Chat_UnreadCount0_HTTP_Handler(srv))
	r.GET("/orders/{id}/chat/stats", _Chat_ChatStats0_HTTP_Handler(srv))
}

func _Chat_ListMessages0_HTTP_Handler(srv ChatHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in OrderRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationChatListMessages)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListMessages(ctx, req.(*OrderRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ListMessagesReply)
		return ctx.Result(200, reply)
	}
}

func _Chat_MarkRead0_HTTP_Handler(srv ChatHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in OrderRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationChatMarkRead)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.MarkRead(ctx, req.(*OrderRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*MarkReadReply)
		return ctx.Result(200, reply)
	}
}

func _Chat_UnreadCount0_HTTP_Handler(srv ChatHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in OrderRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationChatUnreadCount)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.UnreadCount(ctx, req.(*OrderRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*UnreadCountReply)
		return ctx.Result(200, reply)
	}
}

func _Chat_ChatStats0_HTTP_Handler(srv ChatHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in OrderRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationChatChatStats)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ChatStats(ctx, req.(*OrderRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ChatStatsReply)
		return ctx.Result(200, reply)
	}
}

type LocationHTTPServer interface {
	// UpdateLocation 指派骑手上报位置
	UpdateLocation(context.Context, *UpdateLocationRequest) (*LocationReply, error)
	GetLocation(context.Context, *OrderRequest) (*LocationReply, error)
}

func RegisterLocationHTTPServer(s *http.Server, srv LocationHTTPServer) {
	r := s.Route("/")
	r.POST("/orders/{id}/location", _Location_UpdateLocation0_HTTP_Handler(srv))
	r.GET("/orders/{id}/location", _Location_GetLocation0_HTTP_Handler(srv))
}

func _Location_UpdateLocation0_HTTP_Handler(srv LocationHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in UpdateLocationRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationLocationUpdateLocation)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.UpdateLocation(ctx, req.(*UpdateLocationRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*LocationReply)
		return ctx.Result(200, reply)
	}
}

func _Location_GetLocation0_HTTP_Handler(srv LocationHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in OrderRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationLocationGetLocation)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetLocation(ctx, req.(*OrderRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*LocationReply)
		return ctx.Result(200, reply)
	}
}
