package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/auth"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
)

// ErrUnauthenticated 令牌无效或已过期
var ErrUnauthenticated = errors.Unauthorized("UNAUTHENTICATED", "access token is invalid or expired")

type errorBody struct {
	Code     int32             `json:"code"`
	Reason   string            `json:"reason"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ErrorEncoder 将 kratos error 编码为 JSON 响应
// 5xx 且没有业务原因的错误不向调用方暴露内部信息
func ErrorEncoder(w http.ResponseWriter, r *http.Request, err error) {
	se := errors.FromError(err)
	body := errorBody{
		Code:     se.Code,
		Reason:   se.Reason,
		Message:  se.Message,
		Metadata: se.Metadata,
	}
	if se.Code >= 500 && se.Reason == "" {
		body.Message = "internal server error"
	}
	data, mErr := json.Marshal(body)
	if mErr != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(int(se.Code))
	_, _ = w.Write(data)
}

// TokenVerifier 校验访问令牌并返回用户ID
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (uint64, error)
}

// Authenticate 解析 Authorization: Bearer <token>，成功时把用户写入 context
// 没有令牌或令牌无效时按匿名请求继续，由业务层决定是否拒绝
func Authenticate(v TokenVerifier) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return handler(ctx, req)
			}
			token := BearerToken(tr.RequestHeader().Get("Authorization"))
			if token == "" {
				return handler(ctx, req)
			}
			uid, err := v.VerifyAccessToken(ctx, token)
			if err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					return handler(ctx, req)
				}
				return nil, err
			}
			return handler(auth.NewContext(ctx, uid, token), req)
		}
	}
}

// BearerToken 从 Authorization 头中取出令牌
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
