package biz

import (
	"time"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"
)

var defaultAdminRoles = []string{"admin", "super_admin"}

// AccessPolicy 订单聊天访问策略
// 角色优先级: admin > delivery > client > guest，每次调用都按当前数据重新计算
type AccessPolicy struct {
	adminRoles []string
}

// NewAccessPolicy 创建访问策略
func NewAccessPolicy(cb *conf.Bootstrap) *AccessPolicy {
	roles := defaultAdminRoles
	if cb.Chat != nil && len(cb.Chat.AdminRoles) > 0 {
		roles = cb.Chat.AdminRoles
	}
	return &AccessPolicy{adminRoles: roles}
}

// AdminRoles 视为管理员的角色
func (p *AccessPolicy) AdminRoles() []string {
	return p.adminRoles
}

// IsAdmin 用户是否拥有任一管理员角色
func (p *AccessPolicy) IsAdmin(user *bo.User) bool {
	return user.HasAnyRole(p.adminRoles...)
}

// RoleFor 计算用户相对订单的角色
func (p *AccessPolicy) RoleFor(user *bo.User, order *bo.Order) bo.Role {
	switch {
	case user == nil || order == nil:
		return bo.RoleGuest
	case p.IsAdmin(user):
		return bo.RoleAdmin
	case order.HasCourier() && order.DeliveryID == user.ID:
		return bo.RoleDelivery
	case order.UserID == user.ID:
		return bo.RoleClient
	default:
		return bo.RoleGuest
	}
}

// CanAccess 是否可以查看订单聊天
func (p *AccessPolicy) CanAccess(user *bo.User, order *bo.Order, role bo.Role) bool {
	if user == nil || order == nil {
		return false
	}
	switch role {
	case bo.RoleAdmin:
		return true
	case bo.RoleClient:
		return order.UserID == user.ID
	case bo.RoleDelivery:
		return order.HasCourier() && order.DeliveryID == user.ID && order.AssignedAt != nil
	default:
		return false
	}
}

// CanSend 是否可以发送消息，骑手必须已有指派时间
func (p *AccessPolicy) CanSend(user *bo.User, order *bo.Order, role bo.Role) bool {
	if !p.CanAccess(user, order, role) {
		return false
	}
	if role == bo.RoleDelivery && order.AssignedAt == nil {
		return false
	}
	return true
}

// VisibleSince 骑手只能看到指派之后的消息，其他角色看到全部
func VisibleSince(order *bo.Order, role bo.Role) *time.Time {
	if role == bo.RoleDelivery {
		return order.AssignedAt
	}
	return nil
}
