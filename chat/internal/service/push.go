package service

import (
	"context"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/auth"
)

var _ v1.PushHTTPServer = (*PushService)(nil)

type PushService struct {
	uc *biz.PushUsecase
}

func NewPushService(uc *biz.PushUsecase) *PushService {
	return &PushService{uc: uc}
}

func (s *PushService) Subscribe(ctx context.Context, req *v1.PushSubscriptionRequest) (*v1.EmptyReply, error) {
	err := s.uc.Subscribe(ctx, auth.GetUserID(ctx), &bo.PushSubscription{
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256Dh,
		Auth:     req.Keys.Auth,
	})
	if err != nil {
		return nil, err
	}
	return &v1.EmptyReply{}, nil
}

func (s *PushService) Unsubscribe(ctx context.Context, req *v1.PushSubscriptionRequest) (*v1.EmptyReply, error) {
	if err := s.uc.Unsubscribe(ctx, auth.GetUserID(ctx), req.Endpoint); err != nil {
		return nil, err
	}
	return &v1.EmptyReply{}, nil
}
