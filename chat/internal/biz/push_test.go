package biz

import (
	"context"
	"testing"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
)

type fakeSubscriptions struct {
	subs map[string]*bo.PushSubscription
}

func (f *fakeSubscriptions) SaveSubscription(_ context.Context, sub *bo.PushSubscription) error {
	f.subs[sub.Endpoint] = sub
	return nil
}

func (f *fakeSubscriptions) DeleteSubscription(_ context.Context, userID uint64, endpoint string) error {
	if s, ok := f.subs[endpoint]; ok && s.UserID == userID {
		delete(f.subs, endpoint)
	}
	return nil
}

func (f *fakeSubscriptions) ListSubscriptions(_ context.Context, userID uint64) ([]*bo.PushSubscription, error) {
	var out []*bo.PushSubscription
	for _, s := range f.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestPushSubscribe(t *testing.T) {
	f := newFixture()
	repo := &fakeSubscriptions{subs: map[string]*bo.PushSubscription{}}
	uc := NewPushUsecase(testLogger, f.requester, repo)
	ctx := context.Background()
	endpoint := "https://fcm.googleapis.com/fcm/send/abc"

	err := uc.Subscribe(ctx, clientID, &bo.PushSubscription{UserID: 99, Endpoint: endpoint, P256dh: "p", Auth: "a"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if repo.subs[endpoint].UserID != clientID {
		t.Fatal("subscription must belong to the caller")
	}

	// 其他用户无法删除
	_ = uc.Unsubscribe(ctx, courierID, endpoint)
	if _, ok := repo.subs[endpoint]; !ok {
		t.Fatal("another user removed the subscription")
	}
	if err := uc.Unsubscribe(ctx, clientID, endpoint); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if len(repo.subs) != 0 {
		t.Fatal("subscription not removed")
	}
}

func TestPushSubscribeValidation(t *testing.T) {
	f := newFixture()
	uc := NewPushUsecase(testLogger, f.requester, &fakeSubscriptions{subs: map[string]*bo.PushSubscription{}})
	ctx := context.Background()

	tests := []struct {
		user  uint64
		sub   *bo.PushSubscription
		check func(error) bool
	}{
		{0, &bo.PushSubscription{Endpoint: "https://x.test/1", P256dh: "p", Auth: "a"}, v1.IsUnauthenticated},
		{clientID, &bo.PushSubscription{Endpoint: "http://x.test/1", P256dh: "p", Auth: "a"}, v1.IsValidationFailed},
		{clientID, &bo.PushSubscription{Endpoint: "https://x.test/1", Auth: "a"}, v1.IsValidationFailed},
	}
	for _, tt := range tests {
		if err := uc.Subscribe(ctx, tt.user, tt.sub); !tt.check(err) {
			t.Errorf("subscribe(%d, %s) = %v", tt.user, tt.sub.Endpoint, err)
		}
	}
	if err := uc.Unsubscribe(ctx, clientID, ""); !v1.IsValidationFailed(err) {
		t.Errorf("empty endpoint: %v", err)
	}
}
