package data

import (
	"context"
	"errors"
	"fmt"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/data/po"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

var _ biz.UserRepo = (*userRepo)(nil)

type userRepo struct {
	data *Data
	log  *log.Helper
}

// NewUserRepo 用户只读仓库
func NewUserRepo(data *Data, logger log.Logger) biz.UserRepo {
	return &userRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetUser 加载用户及其角色
func (r *userRepo) GetUser(ctx context.Context, id uint64) (*bo.User, error) {
	var u po.User
	err := r.data.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, v1.ErrorUnauthenticated("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	var roles []string
	err = r.data.db.WithContext(ctx).
		Model(&po.Role{}).
		Joins("JOIN model_has_roles ON model_has_roles.role_id = roles.id").
		Where("model_has_roles.model_id = ? AND model_has_roles.model_type = ?", id, po.UserModelType).
		Pluck("roles.name", &roles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	return bo.NewUser(u.ID, u.Name, roles...), nil
}

// ListIDsByRoles 拥有任一角色的用户ID，按ID排序
func (r *userRepo) ListIDsByRoles(ctx context.Context, roles []string) ([]uint64, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	var ids []uint64
	err := r.data.db.WithContext(ctx).
		Model(&po.ModelHasRole{}).
		Distinct("model_has_roles.model_id").
		Joins("JOIN roles ON roles.id = model_has_roles.role_id").
		Where("roles.name IN ? AND model_has_roles.model_type = ?", roles, po.UserModelType).
		Order("model_has_roles.model_id").
		Pluck("model_has_roles.model_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users by roles: %w", err)
	}
	return ids, nil
}
