package biz

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/auth/sign"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	privateChannelPrefix = "private-"
	// AdminChannel 管理员广播频道
	AdminChannel = privateChannelPrefix + "admins"
)

var socketIDPattern = regexp.MustCompile(`^\d+\.\d+$`)

// PrivateChannel 私有频道全名
func PrivateChannel(name string) string {
	return privateChannelPrefix + name
}

// ChannelAuthorizer 私有频道订阅鉴权
type ChannelAuthorizer struct {
	log    *log.Helper
	orders OrderRepo
	policy *AccessPolicy
	signer *sign.ChannelSigner
}

// NewChannelAuthorizer 创建频道鉴权
func NewChannelAuthorizer(cb *conf.Bootstrap, logger log.Logger, orders OrderRepo, policy *AccessPolicy) *ChannelAuthorizer {
	var key, secret string
	if cb.Broadcast != nil {
		key, secret = cb.Broadcast.AppKey, cb.Broadcast.AppSecret
	}
	return &ChannelAuthorizer{
		log:    log.NewHelper(logger),
		orders: orders,
		policy: policy,
		signer: sign.NewChannelSigner(key, secret),
	}
}

// Authorize 校验用户能否订阅频道，通过时返回签名凭证
func (a *ChannelAuthorizer) Authorize(ctx context.Context, user *bo.User, channel, socketID string) (*bo.ChannelGrant, error) {
	err := a.check(ctx, user, channel, socketID)
	var uid uint64
	if user != nil {
		uid = user.ID
	}
	if err != nil {
		a.log.WithContext(ctx).Infow("msg", "channel auth denied", "user_id", uid, "channel", channel, "socket_id", socketID, "reason", err.Error())
		return nil, err
	}
	a.log.WithContext(ctx).Infow("msg", "channel auth granted", "user_id", uid, "channel", channel, "socket_id", socketID)
	return &bo.ChannelGrant{Auth: a.signer.Sign(socketID, channel, "")}, nil
}

func (a *ChannelAuthorizer) check(ctx context.Context, user *bo.User, channel, socketID string) error {
	if user == nil {
		return v1.ErrorUnauthenticated("authentication required")
	}
	if !socketIDPattern.MatchString(socketID) {
		return v1.ErrorValidationFailed("invalid socket_id %q", socketID)
	}
	name, ok := strings.CutPrefix(channel, privateChannelPrefix)
	if !ok {
		return v1.ErrorChannelForbidden("channel %q is not private", channel)
	}
	switch {
	case strings.HasPrefix(name, "order."):
		orderID, err := strconv.ParseUint(strings.TrimPrefix(name, "order."), 10, 64)
		if err != nil {
			return v1.ErrorChannelForbidden("malformed order channel %q", channel)
		}
		order, err := a.orders.GetOrder(ctx, orderID)
		if err != nil {
			if v1.IsOrderNotFound(err) {
				return v1.ErrorChannelForbidden("order %d not found", orderID)
			}
			return err
		}
		if !a.policy.CanAccess(user, order, a.policy.RoleFor(user, order)) {
			return v1.ErrorChannelForbidden("user %d cannot access order %d", user.ID, orderID)
		}
		return nil
	case strings.HasPrefix(name, "user."):
		id, err := strconv.ParseUint(strings.TrimPrefix(name, "user."), 10, 64)
		if err != nil || id != user.ID {
			return v1.ErrorChannelForbidden("user %d cannot join %q", user.ID, channel)
		}
		return nil
	case channel == AdminChannel:
		if !a.policy.IsAdmin(user) {
			return v1.ErrorChannelForbidden("user %d is not an admin", user.ID)
		}
		return nil
	default:
		return v1.ErrorChannelForbidden("unknown channel %q", channel)
	}
}

// VerifySubscription 校验 websocket 订阅时带上的凭证
func (a *ChannelAuthorizer) VerifySubscription(socketID, channel, authToken string) error {
	if !strings.HasPrefix(channel, privateChannelPrefix) {
		return nil
	}
	if err := a.signer.Verify(socketID, channel, "", authToken); err != nil {
		return v1.ErrorChannelForbidden("invalid channel auth: %v", err)
	}
	return nil
}
