package bo

// Role 用户相对订单的角色
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleDelivery Role = "delivery"
	RoleClient   Role = "client"
	RoleGuest    Role = "guest"
)

func (r Role) String() string {
	return string(r)
}

// User 用户及其角色集合
type User struct {
	ID    uint64
	Name  string
	Roles map[string]struct{}
}

// NewUser 用角色列表构造用户
func NewUser(id uint64, name string, roles ...string) *User {
	u := &User{ID: id, Name: name, Roles: make(map[string]struct{}, len(roles))}
	for _, r := range roles {
		u.Roles[r] = struct{}{}
	}
	return u
}

func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	_, ok := u.Roles[role]
	return ok
}

func (u *User) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// UserSummary 广播和接口中使用的用户摘要
type UserSummary struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role,omitempty"`
}
