package biz

import (
	"testing"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
)

func TestRoleForPrecedence(t *testing.T) {
	f := newFixture()
	order := f.order()
	tests := []struct {
		name string
		user *bo.User
		want bo.Role
	}{
		{"owner", f.user(clientID), bo.RoleClient},
		{"courier", f.user(courierID), bo.RoleDelivery},
		{"admin", f.user(adminID), bo.RoleAdmin},
		{"stranger", f.user(strangerID), bo.RoleGuest},
		{"admin who owns the order", bo.NewUser(clientID, "Ana", "admin"), bo.RoleAdmin},
		{"nil user", nil, bo.RoleGuest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.policy.RoleFor(tt.user, order); got != tt.want {
				t.Fatalf("RoleFor() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRoleForCourierWhoIsAlsoOwner(t *testing.T) {
	f := newFixture()
	order := &bo.Order{ID: 7, UserID: courierID, DeliveryID: courierID, AssignedAt: tsp(5)}
	if got := f.policy.RoleFor(f.user(courierID), order); got != bo.RoleDelivery {
		t.Fatalf("RoleFor() = %s, want delivery", got)
	}
}

func TestCourierWithoutAssignmentTimestampHasNoAccess(t *testing.T) {
	f := newFixture()
	order := f.order()
	order.AssignedAt = nil
	courier := f.user(courierID)

	if role := f.policy.RoleFor(courier, order); role != bo.RoleDelivery {
		t.Fatalf("role = %s, want delivery", role)
	}
	if f.policy.CanAccess(courier, order, bo.RoleDelivery) {
		t.Fatal("courier without assigned_at must not access chat")
	}
	if f.policy.CanSend(courier, order, bo.RoleDelivery) {
		t.Fatal("courier without assigned_at must not send")
	}
}

func TestCanAccessMatrix(t *testing.T) {
	f := newFixture()
	order := f.order()
	tests := []struct {
		name string
		user *bo.User
		role bo.Role
		want bool
	}{
		{"admin", f.user(adminID), bo.RoleAdmin, true},
		{"owner as client", f.user(clientID), bo.RoleClient, true},
		{"stranger claiming client", f.user(strangerID), bo.RoleClient, false},
		{"assigned courier", f.user(courierID), bo.RoleDelivery, true},
		{"other courier", bo.NewUser(77, "Eva", "delivery"), bo.RoleDelivery, false},
		{"guest", f.user(strangerID), bo.RoleGuest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.policy.CanAccess(tt.user, order, tt.role); got != tt.want {
				t.Fatalf("CanAccess() = %v, want %v", got, tt.want)
			}
			if got := f.policy.CanSend(tt.user, order, tt.role); got != tt.want {
				t.Fatalf("CanSend() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVisibleSince(t *testing.T) {
	f := newFixture()
	order := f.order()
	if got := VisibleSince(order, bo.RoleDelivery); got == nil || !got.Equal(ts(10)) {
		t.Fatalf("delivery since = %v, want %v", got, ts(10))
	}
	for _, role := range []bo.Role{bo.RoleAdmin, bo.RoleClient} {
		if got := VisibleSince(order, role); got != nil {
			t.Fatalf("%s since = %v, want nil", role, got)
		}
	}
}

func TestDefaultAdminRoles(t *testing.T) {
	cb := testBootstrap()
	cb.Chat.AdminRoles = nil
	p := NewAccessPolicy(cb)
	if !p.IsAdmin(bo.NewUser(1, "root", "super_admin")) {
		t.Fatal("super_admin should be admin by default")
	}
}
