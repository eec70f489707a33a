package biz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

var testLogger = log.NewStdLogger(io.Discard)

func testBootstrap() *conf.Bootstrap {
	return &conf.Bootstrap{
		Chat: &conf.Chat{
			MaxMessageLength:   1000,
			MaxAttachmentBytes: 10 << 20,
			AdminRoles:         []string{"admin"},
		},
		Broadcast: &conf.Broadcast{AppKey: "key", AppSecret: "secret"},
	}
}

func ts(minute int) time.Time {
	return time.Date(2026, 3, 1, 12, minute, 0, 0, time.UTC)
}

func tsp(minute int) *time.Time {
	t := ts(minute)
	return &t
}

type fakeOrders struct {
	orders map[uint64]*bo.Order
}

func (f *fakeOrders) GetOrder(_ context.Context, id uint64) (*bo.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, v1.ErrorOrderNotFound("order %d not found", id)
	}
	cp := *o
	return &cp, nil
}

type fakeUsers struct {
	users   map[uint64]*bo.User
	listErr error
}

func (f *fakeUsers) GetUser(_ context.Context, id uint64) (*bo.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, v1.ErrorPermissionDenied("user %d not found", id)
	}
	return u, nil
}

func (f *fakeUsers) ListIDsByRoles(_ context.Context, roles []string) ([]uint64, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var ids []uint64
	for id, u := range f.users {
		if u.HasAnyRole(roles...) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fakeMessages struct {
	mu        sync.Mutex
	messages  []*bo.Message
	nextID    uint64
	createErr []error // 依次消费
	creates   int
}

func (f *fakeMessages) visible(filter *bo.MessageFilter) []*bo.Message {
	var out []*bo.Message
	for _, m := range f.messages {
		if m.OrderID != filter.OrderID {
			continue
		}
		if filter.Since != nil && m.CreatedAt.Before(*filter.Since) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *fakeMessages) Create(_ context.Context, msg *bo.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if len(f.createErr) > 0 {
		err := f.createErr[0]
		f.createErr = f.createErr[1:]
		if err != nil {
			return err
		}
	}
	f.nextID++
	msg.ID = f.nextID
	cp := *msg
	f.messages = append(f.messages, &cp)
	return nil
}

func (f *fakeMessages) GetByJobID(_ context.Context, jobID string) (*bo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.JobID != "" && m.JobID == jobID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeMessages) Get(_ context.Context, orderID, messageID uint64) (*bo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.OrderID == orderID && m.ID == messageID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, v1.ErrorMessageNotFound("message %d not found", messageID)
}

func (f *fakeMessages) List(_ context.Context, filter *bo.MessageFilter) ([]*bo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible(filter), nil
}

func (f *fakeMessages) MarkRead(_ context.Context, filter *bo.MessageFilter, readerID uint64, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.visible(filter) {
		if m.UserID != readerID && !m.IsRead {
			m.IsRead = true
			t := at
			m.ReadAt = &t
			n++
		}
	}
	return n, nil
}

func (f *fakeMessages) UnreadCount(_ context.Context, filter *bo.MessageFilter, readerID uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.visible(filter) {
		if m.UserID != readerID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeMessages) Stats(_ context.Context, filter *bo.MessageFilter, readerID uint64, assignedAt *time.Time) (*bo.ChatStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &bo.ChatStats{}
	for _, m := range f.visible(filter) {
		s.TotalMessages++
		if m.UserID != readerID && !m.IsRead {
			s.UnreadMessages++
		}
		if m.IsDeliveryMessage {
			s.DeliveryMessages++
		}
		if assignedAt == nil || m.CreatedAt.Before(*assignedAt) {
			s.PreDeliveryMessages++
		}
		t := m.CreatedAt
		s.LastMessageAt = &t
	}
	return s, nil
}

// fakeBlob 内存附件存储，可注入失败
type fakeBlob struct {
	mu       sync.Mutex
	files    map[string][]byte
	moveErrs []error
	moves    int
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{files: map[string][]byte{}}
}

func (f *fakeBlob) Store(_ context.Context, p string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[p] = data
	return int64(len(data)), nil
}

func (f *fakeBlob) Move(_ context.Context, src, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves++
	if len(f.moveErrs) > 0 {
		err := f.moveErrs[0]
		f.moveErrs = f.moveErrs[1:]
		if err != nil {
			return err
		}
	}
	data, ok := f.files[src]
	if !ok {
		return fmt.Errorf("%s: no such file", src)
	}
	f.files[dst] = data
	delete(f.files, src)
	return nil
}

func (f *fakeBlob) Delete(_ context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, p)
	return nil
}

func (f *fakeBlob) Exists(_ context.Context, p string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[p]
	return ok, nil
}

func (f *fakeBlob) MimeType(_ context.Context, p string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[p]
	if !ok {
		return "", errors.New("not found")
	}
	return http.DetectContentType(data), nil
}

func (f *fakeBlob) Open(_ context.Context, p string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[p]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlob) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

type published struct {
	channel string
	event   string
	payload interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (f *fakeBroadcaster) Publish(_ context.Context, channel, event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{channel: channel, event: event, payload: payload})
	return f.err
}

type fakeNotifications struct {
	mu      sync.Mutex
	created []*bo.Notification
	failFor map[uint64]bool
}

func (f *fakeNotifications) CreateNotification(_ context.Context, n *bo.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[n.UserID] {
		return errors.New("insert notification: deadlock")
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotifications) recipients() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uint64, 0, len(f.created))
	for _, n := range f.created {
		ids = append(ids, n.UserID)
	}
	return ids
}

type fakePush struct {
	mu   sync.Mutex
	sent []uint64
	err  error
}

func (f *fakePush) SendToUser(_ context.Context, userID uint64, _, _ string, _ map[string]string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.sent = append(f.sent, userID)
	return 1, nil
}

// fixture 常用场景：订单42，客户1，骑手2，管理员9
type fixture struct {
	cb            *conf.Bootstrap
	orders        *fakeOrders
	users         *fakeUsers
	messages      *fakeMessages
	blob          *fakeBlob
	broadcaster   *fakeBroadcaster
	notifications *fakeNotifications
	push          *fakePush
	policy        *AccessPolicy
	store         *MessageStore
	attachments   *AttachmentPipeline
	fanout        *Fanout
	deliverer     *Deliverer
	requester     *Requester
	sleeps        []time.Duration
}

const (
	orderID    uint64 = 42
	clientID   uint64 = 1
	courierID  uint64 = 2
	strangerID uint64 = 3
	adminID    uint64 = 9
)

func newFixture() *fixture {
	f := &fixture{
		cb: testBootstrap(),
		orders: &fakeOrders{orders: map[uint64]*bo.Order{
			orderID: {ID: orderID, UserID: clientID, DeliveryID: courierID, AssignedAt: tsp(10), Status: "on_the_way"},
		}},
		users: &fakeUsers{users: map[uint64]*bo.User{
			clientID:   bo.NewUser(clientID, "Ana", "client"),
			courierID:  bo.NewUser(courierID, "Beto", "delivery"),
			strangerID: bo.NewUser(strangerID, "Carla", "client"),
			adminID:    bo.NewUser(adminID, "Diego", "admin"),
		}},
		messages:      &fakeMessages{},
		blob:          newFakeBlob(),
		broadcaster:   &fakeBroadcaster{},
		notifications: &fakeNotifications{failFor: map[uint64]bool{}},
		push:          &fakePush{},
	}
	f.policy = NewAccessPolicy(f.cb)
	f.store = NewMessageStore(f.cb, f.messages, testLogger)
	f.store.now = func() time.Time { return ts(30) }
	f.attachments = NewAttachmentPipeline(f.cb, f.blob, testLogger)
	f.fanout = NewFanout(testLogger, f.broadcaster, f.notifications, f.push, f.users, f.policy)
	f.deliverer = NewDeliverer(f.cb, testLogger, f.orders, f.users, f.messages, f.store, f.policy, f.attachments, f.fanout)
	f.deliverer.now = func() time.Time { return ts(20) }
	f.deliverer.sleep = func(_ context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return nil
	}
	f.requester = NewRequester(f.orders, f.users, f.policy)
	return f
}

func (f *fixture) order() *bo.Order {
	o, _ := f.orders.GetOrder(context.Background(), orderID)
	return o
}

func (f *fixture) user(id uint64) *bo.User {
	return f.users.users[id]
}

func (f *fixture) seed(userID uint64, minute int, body string, delivery bool) *bo.Message {
	m := &bo.Message{
		OrderID:           orderID,
		UserID:            userID,
		Body:              body,
		Type:              bo.MessageTypeText,
		IsDeliveryMessage: delivery,
		CreatedAt:         ts(minute),
	}
	_ = f.messages.Create(context.Background(), m)
	return m
}
