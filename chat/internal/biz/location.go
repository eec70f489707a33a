package biz

import (
	"context"
	"math"
	"time"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

const defaultLocationTTL = 2 * time.Hour

// LocationRepo 骑手最近位置
type LocationRepo interface {
	SaveLocation(ctx context.Context, loc *bo.Location, ttl time.Duration) error
	// GetLocation 没有记录时返回 nil, nil
	GetLocation(ctx context.Context, orderID uint64) (*bo.Location, error)
}

// LocationUpdate 骑手上报的位置
type LocationUpdate struct {
	OrderID   uint64
	Latitude  float64
	Longitude float64
	Heading   *float64
	Speed     *float64
}

// LocationUsecase 骑手实时位置
type LocationUsecase struct {
	log         *log.Helper
	requester   *Requester
	policy      *AccessPolicy
	repo        LocationRepo
	broadcaster Broadcaster
	ttl         time.Duration
	now         func() time.Time
}

// NewLocationUsecase 创建位置用例
func NewLocationUsecase(cb *conf.Bootstrap, logger log.Logger, requester *Requester, policy *AccessPolicy,
	repo LocationRepo, broadcaster Broadcaster) *LocationUsecase {
	ttl := defaultLocationTTL
	if cb.Chat != nil && cb.Chat.LocationTtl.AsDuration() > 0 {
		ttl = cb.Chat.LocationTtl.AsDuration()
	}
	return &LocationUsecase{
		log:         log.NewHelper(logger),
		requester:   requester,
		policy:      policy,
		repo:        repo,
		broadcaster: broadcaster,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Update 只有已激活的指派骑手可以上报位置
func (uc *LocationUsecase) Update(ctx context.Context, userID uint64, in *LocationUpdate) (*bo.Location, error) {
	if err := validateCoordinates(in.Latitude, in.Longitude); err != nil {
		return nil, err
	}
	user, order, role, err := uc.requester.Load(ctx, userID, in.OrderID)
	if err != nil {
		return nil, err
	}
	if role != bo.RoleDelivery || !uc.policy.CanSend(user, order, role) {
		return nil, v1.ErrorPermissionDenied("only the assigned courier can report location for order %d", order.ID)
	}
	loc := &bo.Location{
		OrderID:    order.ID,
		DeliveryID: user.ID,
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		Heading:    in.Heading,
		Speed:      in.Speed,
		RecordedAt: uc.now().UTC(),
	}
	if err := uc.repo.SaveLocation(ctx, loc, uc.ttl); err != nil {
		return nil, err
	}
	if err := uc.broadcaster.Publish(ctx, OrderChannel(order.ID), bo.EventDeliveryLocation, loc); err != nil {
		uc.log.WithContext(ctx).Errorf("broadcast location failed. order_id=%d, error=%v", order.ID, err)
	}
	return loc, nil
}

// Latest 返回最近一次位置，没有上报过时为 nil
func (uc *LocationUsecase) Latest(ctx context.Context, userID, orderID uint64) (*bo.Location, error) {
	user, order, role, err := uc.requester.Load(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !uc.policy.CanAccess(user, order, role) {
		return nil, v1.ErrorPermissionDenied("user %d cannot access order %d", user.ID, order.ID)
	}
	return uc.repo.GetLocation(ctx, order.ID)
}

func validateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return v1.ErrorValidationFailed("invalid coordinates (%v, %v)", lat, lng)
	}
	return nil
}
