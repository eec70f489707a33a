package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/data/po"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/model"

	"github.com/glebarez/sqlite"
	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// newSQLiteData 使用临时 SQLite 文件代替 MySQL
func newSQLiteData(t *testing.T) *Data {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "chat.db")), &gorm.Config{
		Logger:         model.NewKratosGormLogger(log.NewHelper(testLogger), "silent", 0),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&po.Message{}, &po.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &Data{db: db}
}

func at(minute int) time.Time {
	return time.Date(2026, 3, 1, 12, minute, 0, 0, time.UTC)
}

// 订单42：客户1在指派前后各发一条，骑手2在指派后回复；订单43另有一条
func seedChat(t *testing.T, repo *messageRepo) {
	t.Helper()
	ctx := context.Background()
	users := []po.User{{ID: 1, Name: "Ana"}, {ID: 2, Name: "Beto"}}
	if err := repo.data.db.Create(&users).Error; err != nil {
		t.Fatalf("seed users: %v", err)
	}
	for _, m := range []*bo.Message{
		{JobID: "job-a", OrderID: 42, UserID: 1, Body: "before courier", Type: bo.MessageTypeText, CreatedAt: at(5)},
		{JobID: "job-b", OrderID: 42, UserID: 1, Body: "after courier", Type: bo.MessageTypeText, CreatedAt: at(15)},
		{JobID: "job-c", OrderID: 42, UserID: 2, Body: "on my way", Type: bo.MessageTypeText, IsDeliveryMessage: true, CreatedAt: at(16)},
		{JobID: "job-d", OrderID: 43, UserID: 1, Body: "other order", Type: bo.MessageTypeText, CreatedAt: at(17)},
	} {
		if err := repo.Create(ctx, m); err != nil {
			t.Fatalf("seed %s: %v", m.JobID, err)
		}
	}
}

func TestMessageRepoListFollowsVisibility(t *testing.T) {
	repo := NewMessageRepo(newSQLiteData(t), testLogger).(*messageRepo)
	seedChat(t, repo)
	ctx := context.Background()
	assigned := at(10)

	all, err := repo.List(ctx, &bo.MessageFilter{OrderID: 42})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("client sees %d messages, want 3", len(all))
	}
	if all[0].Body != "before courier" || all[2].Body != "on my way" {
		t.Fatalf("messages out of order: %q ... %q", all[0].Body, all[2].Body)
	}
	if all[2].Sender == nil || all[2].Sender.Name != "Beto" {
		t.Fatalf("sender = %+v", all[2].Sender)
	}

	windowed, err := repo.List(ctx, &bo.MessageFilter{OrderID: 42, Since: &assigned})
	if err != nil {
		t.Fatalf("windowed list: %v", err)
	}
	if len(windowed) != 2 || windowed[0].Body != "after courier" {
		t.Fatalf("courier view = %d messages", len(windowed))
	}

	empty, err := repo.List(ctx, &bo.MessageFilter{OrderID: 99})
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("empty order = %v, %v", empty, err)
	}
}

func TestMessageRepoMarkReadTwice(t *testing.T) {
	repo := NewMessageRepo(newSQLiteData(t), testLogger).(*messageRepo)
	seedChat(t, repo)
	ctx := context.Background()
	assigned := at(10)
	courierScope := &bo.MessageFilter{OrderID: 42, Since: &assigned}

	n, err := repo.MarkRead(ctx, courierScope, 2, at(30))
	if err != nil || n != 1 {
		t.Fatalf("first mark read = %d, %v; want 1", n, err)
	}
	n, err = repo.MarkRead(ctx, courierScope, 2, at(31))
	if err != nil || n != 0 {
		t.Fatalf("second mark read = %d, %v; want 0", n, err)
	}

	// 窗口外的消息仍未读
	unread, err := repo.UnreadCount(ctx, &bo.MessageFilter{OrderID: 42}, 2)
	if err != nil || unread != 1 {
		t.Fatalf("unread outside window = %d, %v; want 1", unread, err)
	}
	unread, err = repo.UnreadCount(ctx, courierScope, 2)
	if err != nil || unread != 0 {
		t.Fatalf("unread inside window = %d, %v; want 0", unread, err)
	}
	// 自己发的消息不计入
	unread, err = repo.UnreadCount(ctx, &bo.MessageFilter{OrderID: 42}, 1)
	if err != nil || unread != 1 {
		t.Fatalf("client unread = %d, %v; want 1", unread, err)
	}

	msg, err := repo.GetByJobID(ctx, "job-b")
	if err != nil || msg == nil || !msg.IsRead || msg.ReadAt == nil || !msg.ReadAt.Equal(at(30)) {
		t.Fatalf("read message = %+v, %v", msg, err)
	}
}

func TestMessageRepoStats(t *testing.T) {
	repo := NewMessageRepo(newSQLiteData(t), testLogger).(*messageRepo)
	seedChat(t, repo)
	ctx := context.Background()
	assigned := at(10)

	client, err := repo.Stats(ctx, &bo.MessageFilter{OrderID: 42}, 1, &assigned)
	if err != nil {
		t.Fatalf("client stats: %v", err)
	}
	if client.TotalMessages != 3 || client.UnreadMessages != 1 || client.DeliveryMessages != 1 || client.PreDeliveryMessages != 1 {
		t.Fatalf("client stats = %+v", client)
	}
	if client.LastMessageAt == nil || !client.LastMessageAt.Equal(at(16)) {
		t.Fatalf("last message at = %v", client.LastMessageAt)
	}

	courier, err := repo.Stats(ctx, &bo.MessageFilter{OrderID: 42, Since: &assigned}, 2, &assigned)
	if err != nil {
		t.Fatalf("courier stats: %v", err)
	}
	if courier.TotalMessages != 2 || courier.UnreadMessages != 1 || courier.PreDeliveryMessages != 0 {
		t.Fatalf("courier stats = %+v", courier)
	}

	unassigned, err := repo.Stats(ctx, &bo.MessageFilter{OrderID: 42}, 1, nil)
	if err != nil || unassigned.PreDeliveryMessages != 3 {
		t.Fatalf("unassigned stats = %+v, %v", unassigned, err)
	}

	empty, err := repo.Stats(ctx, &bo.MessageFilter{OrderID: 99}, 1, nil)
	if err != nil || empty.TotalMessages != 0 || empty.LastMessageAt != nil {
		t.Fatalf("empty stats = %+v, %v", empty, err)
	}
}

func TestMessageRepoCreateIsIdempotentPerJob(t *testing.T) {
	repo := NewMessageRepo(newSQLiteData(t), testLogger).(*messageRepo)
	ctx := context.Background()

	first := &bo.Message{JobID: "job-x", OrderID: 42, UserID: 1, Body: "hola", Type: bo.MessageTypeText, CreatedAt: at(1)}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	again := &bo.Message{JobID: "job-x", OrderID: 42, UserID: 1, Body: "hola", Type: bo.MessageTypeText, CreatedAt: at(2)}
	if err := repo.Create(ctx, again); err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("duplicate job got id %d, want %d", again.ID, first.ID)
	}

	if _, err := repo.Get(ctx, 43, first.ID); !v1.IsMessageNotFound(err) {
		t.Fatalf("get on other order = %v, want MESSAGE_NOT_FOUND", err)
	}
	if msg, err := repo.GetByJobID(ctx, "job-missing"); msg != nil || err != nil {
		t.Fatalf("missing job = %+v, %v", msg, err)
	}
}
