package po

// User 主站用户表，只读
type User struct {
	ID   uint64 `gorm:"primaryKey"`
	Name string `gorm:"column:name"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}

// Role 角色表
type Role struct {
	ID   uint64 `gorm:"primaryKey"`
	Name string `gorm:"column:name"`
}

func (Role) TableName() string {
	return "roles"
}

// ModelHasRole 用户与角色的关联表
type ModelHasRole struct {
	RoleID    uint64 `gorm:"column:role_id"`
	ModelType string `gorm:"column:model_type"`
	ModelID   uint64 `gorm:"column:model_id"`
}

func (ModelHasRole) TableName() string {
	return "model_has_roles"
}

// UserModelType 关联表中用户的 model_type
const UserModelType = `App\Models\User`
