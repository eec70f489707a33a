package service

import (
	"context"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/auth"
)

var _ v1.LocationHTTPServer = (*LocationService)(nil)

type LocationService struct {
	uc *biz.LocationUsecase
}

func NewLocationService(uc *biz.LocationUsecase) *LocationService {
	return &LocationService{uc: uc}
}

func (s *LocationService) UpdateLocation(ctx context.Context, req *v1.UpdateLocationRequest) (*v1.LocationReply, error) {
	loc, err := s.uc.Update(ctx, auth.GetUserID(ctx), &biz.LocationUpdate{
		OrderID:   req.OrderId,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Heading:   req.Heading,
		Speed:     req.Speed,
	})
	if err != nil {
		return nil, err
	}
	return &v1.LocationReply{Location: toLocation(loc)}, nil
}

func (s *LocationService) GetLocation(ctx context.Context, req *v1.OrderRequest) (*v1.LocationReply, error) {
	loc, err := s.uc.Latest(ctx, auth.GetUserID(ctx), req.OrderId)
	if err != nil {
		return nil, err
	}
	return &v1.LocationReply{Location: toLocation(loc)}, nil
}
