package auth

import "context"

// 定义自定义键类型来避免冲突
type contextKey string

const (
	USER_ID      = contextKey("x-user-id")
	ACCESS_TOKEN = contextKey("x-access-token")
)

// GetUserID 返回当前请求的用户ID，未登录时为0
func GetUserID(ctx context.Context) uint64 {
	if userID, ok := ctx.Value(USER_ID).(uint64); ok {
		return userID
	}
	return 0
}

func SetUserID(ctx context.Context, userID uint64) context.Context {
	return context.WithValue(ctx, USER_ID, userID)
}

func SetAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ACCESS_TOKEN, token)
}

func NewContext(ctx context.Context, userID uint64, token string) context.Context {
	ctx = SetUserID(ctx, userID)
	ctx = SetAccessToken(ctx, token)
	return ctx
}
