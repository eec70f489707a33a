package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/middleware"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// 用户相关的Redis键
const (
	UserTokenPrefix = "chatify:user:token:" // 访问令牌缓存键前缀
)

var _ middleware.TokenVerifier = (*sessionRepo)(nil)

// session 登录服务写入的令牌信息
type session struct {
	UserID          uint64 `json:"user_id"`
	AccessExpiresIn int64  `json:"access_expires_in"` // 过期时间戳, 单位秒
}

type sessionRepo struct {
	data *Data
	log  *log.Helper
	now  func() time.Time
}

// NewSessionRepo 访问令牌校验
func NewSessionRepo(data *Data, logger log.Logger) middleware.TokenVerifier {
	return &sessionRepo{
		data: data,
		log:  log.NewHelper(logger),
		now:  time.Now,
	}
}

// VerifyAccessToken 令牌不存在或已过期时返回 ErrUnauthenticated
func (r *sessionRepo) VerifyAccessToken(ctx context.Context, accessToken string) (uint64, error) {
	value, err := r.data.redis.Get(ctx, UserTokenPrefix+accessToken).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, middleware.ErrUnauthenticated
		}
		return 0, fmt.Errorf("failed to verify access token: %w", err)
	}
	return r.parse(value)
}

func (r *sessionRepo) parse(value string) (uint64, error) {
	// 兼容只存用户ID的旧令牌
	if uid, err := strconv.ParseUint(value, 10, 64); err == nil {
		if uid == 0 {
			return 0, middleware.ErrUnauthenticated
		}
		return uid, nil
	}
	var s session
	if err := json.Unmarshal([]byte(value), &s); err != nil {
		return 0, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if s.UserID == 0 {
		return 0, middleware.ErrUnauthenticated
	}
	if s.AccessExpiresIn > 0 && r.now().Unix() >= s.AccessExpiresIn {
		return 0, middleware.ErrUnauthenticated
	}
	return s.UserID, nil
}
