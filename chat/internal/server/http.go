package server

import (
	basehttp "net/http"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/service"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/middleware"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/monitoring"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/metrics"
	"github.com/go-kratos/kratos/v2/middleware/ratelimit"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/middleware/tracing"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const wsPath = "/broadcasting/ws"

// NewHTTPServer new an HTTP server.
func NewHTTPServer(cb *conf.Bootstrap, chat *service.ChatService, location *service.LocationService,
	broadcast *service.BroadcastService, push *service.PushService, verifier middleware.TokenVerifier,
	logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			tracing.Server(),
			metrics.Server(
				metrics.WithSeconds(monitoring.MetricSeconds),
				metrics.WithRequests(monitoring.MetricRequests),
			),
			ratelimit.Server(),
			middleware.Authenticate(verifier),
		),
		http.ErrorEncoder(middleware.ErrorEncoder),
	}
	if cb.Server != nil && cb.Server.Http != nil {
		c := cb.Server.Http
		if c.Network != "" {
			opts = append(opts, http.Network(c.Network))
		}
		if c.Addr != "" {
			opts = append(opts, http.Address(c.Addr))
		}
		if c.Timeout != nil {
			opts = append(opts, http.Timeout(c.Timeout.AsDuration()))
		}
	}
	srv := http.NewServer(opts...)
	srv.Handle("/metrics", promhttp.Handler())

	v1.RegisterChatHTTPServer(srv, chat)
	v1.RegisterLocationHTTPServer(srv, location)
	v1.RegisterBroadcastHTTPServer(srv, broadcast)
	v1.RegisterPushHTTPServer(srv, push)
	// multipart 上传和附件下载需要直接读写 body
	r := srv.Route("/")
	r.POST("/orders/{id}/chat", chat.SendMessage)
	r.GET("/orders/{id}/chat/attachment/{message_id}", chat.DownloadAttachment)

	srv.HandleFunc(wsPath, func(w basehttp.ResponseWriter, r *basehttp.Request) {
		ctx := r.Context()
		spanCtx := trace.SpanContextFromContext(ctx)
		if !spanCtx.IsValid() {
			// 长连接不经过 tracing 中间件，单独开一个 span
			tracer := otel.Tracer("websocket")
			var span trace.Span
			ctx, span = tracer.Start(ctx, wsPath)
			defer span.End()
			broadcast.ServeWS(w, r.WithContext(ctx))
			return
		}
		broadcast.ServeWS(w, r)
	})
	log.NewHelper(logger).Infof("chat http routes registered, websocket on %s", wsPath)
	return srv
}
