package biz

import (
	"context"
	"net/url"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"

	"github.com/go-kratos/kratos/v2/log"
)

// SubscriptionRepo Web Push 订阅存储
type SubscriptionRepo interface {
	SaveSubscription(ctx context.Context, sub *bo.PushSubscription) error
	DeleteSubscription(ctx context.Context, userID uint64, endpoint string) error
	ListSubscriptions(ctx context.Context, userID uint64) ([]*bo.PushSubscription, error)
}

// PushUsecase 管理当前用户的推送订阅
type PushUsecase struct {
	log       *log.Helper
	requester *Requester
	repo      SubscriptionRepo
}

func NewPushUsecase(logger log.Logger, requester *Requester, repo SubscriptionRepo) *PushUsecase {
	return &PushUsecase{
		log:       log.NewHelper(logger),
		requester: requester,
		repo:      repo,
	}
}

// Subscribe 保存订阅，同一 endpoint 重复提交时覆盖
func (uc *PushUsecase) Subscribe(ctx context.Context, userID uint64, sub *bo.PushSubscription) error {
	user, err := uc.requester.User(ctx, userID)
	if err != nil {
		return err
	}
	u, err := url.Parse(sub.Endpoint)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return v1.ErrorValidationFailed("endpoint must be an https url")
	}
	if sub.P256dh == "" || sub.Auth == "" {
		return v1.ErrorValidationFailed("keys.p256dh and keys.auth are required")
	}
	sub.UserID = user.ID
	return uc.repo.SaveSubscription(ctx, sub)
}

func (uc *PushUsecase) Unsubscribe(ctx context.Context, userID uint64, endpoint string) error {
	user, err := uc.requester.User(ctx, userID)
	if err != nil {
		return err
	}
	if endpoint == "" {
		return v1.ErrorValidationFailed("endpoint is required")
	}
	return uc.repo.DeleteSubscription(ctx, user.ID, endpoint)
}
