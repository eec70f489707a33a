package data

import (
	"context"
	"fmt"
	"time"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	redisDedupKeyPrefix  = "chat:dedup:job:"
	redisDedupExpiration = 24 * time.Hour // 1天过期时间
)

var _ biz.JobDedupRepo = (*jobDedupRepo)(nil)

// jobDedupRepo 已完成投递任务去重
type jobDedupRepo struct {
	redisClient *redis.Client
	log         *log.Helper
}

// NewJobDedupRepo 创建任务去重仓库
func NewJobDedupRepo(data *Data, logger log.Logger) biz.JobDedupRepo {
	return &jobDedupRepo{
		redisClient: data.redis,
		log:         log.NewHelper(logger),
	}
}

func (r *jobDedupRepo) IsDone(ctx context.Context, jobID string) (bool, error) {
	if jobID == "" {
		return false, nil
	}
	n, err := r.redisClient.Exists(ctx, redisDedupKeyPrefix+jobID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

// CheckAndSetDedup 标记任务已完成
// SADD 返回 1 表示首次标记，0 表示已经标记过
func (r *jobDedupRepo) CheckAndSetDedup(ctx context.Context, jobID string) (bool, error) {
	if jobID == "" {
		return false, fmt.Errorf("jobID cannot be empty")
	}
	key := redisDedupKeyPrefix + jobID
	result, err := r.redisClient.SAdd(ctx, key, jobID).Result()
	if err != nil {
		return false, fmt.Errorf("redis sadd failed: %w", err)
	}
	if result > 0 {
		if err := r.redisClient.Expire(ctx, key, redisDedupExpiration).Err(); err != nil {
			r.log.Warnf("failed to set expire for key %s: %v", key, err)
		}
		return true, nil
	}
	return false, nil
}
