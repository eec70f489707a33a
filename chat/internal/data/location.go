package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

const redisLocationKeyPrefix = "chat:delivery:location:"

var _ biz.LocationRepo = (*locationRepo)(nil)

// locationRepo 骑手最近位置，只保留最后一次上报
type locationRepo struct {
	data *Data
	log  *log.Helper
}

func NewLocationRepo(data *Data, logger log.Logger) biz.LocationRepo {
	return &locationRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func locationKey(orderID uint64) string {
	return redisLocationKeyPrefix + strconv.FormatUint(orderID, 10)
}

func (r *locationRepo) SaveLocation(ctx context.Context, loc *bo.Location, ttl time.Duration) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	if err := r.data.redis.Set(ctx, locationKey(loc.OrderID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save location: %w", err)
	}
	return nil
}

func (r *locationRepo) GetLocation(ctx context.Context, orderID uint64) (*bo.Location, error) {
	data, err := r.data.redis.Get(ctx, locationKey(orderID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	var loc bo.Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, fmt.Errorf("unmarshal location: %w", err)
	}
	return &loc, nil
}
