package biz

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
)

// 1x1 PNG
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

type recordingQueue struct {
	jobs []*bo.DeliveryJob
	err  error
}

func (q *recordingQueue) Dispatch(_ context.Context, job *bo.DeliveryJob) (*bo.JobResult, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.jobs = append(q.jobs, job)
	return nil, nil
}

// resultQueue 同步返回给定结果
type resultQueue struct {
	res *bo.JobResult
}

func (q *resultQueue) Dispatch(context.Context, *bo.DeliveryJob) (*bo.JobResult, error) {
	return q.res, nil
}

func (f *fixture) chat(queue JobQueue) *ChatUsecase {
	uc := NewChatUsecase(testLogger, f.requester, f.policy, f.store, f.attachments, queue)
	uc.now = func() time.Time { return ts(20) }
	return uc
}

func TestScenarioClientMessageVisibleToCourier(t *testing.T) {
	f := newFixture()
	uc := f.chat(NewInlineQueue(f.deliverer))
	ctx := context.Background()

	res, err := uc.Send(ctx, clientID, &SendRequest{OrderID: orderID, Body: "Hola"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Queued || res.Message == nil {
		t.Fatalf("inline send should return the persisted message, got %+v", res)
	}

	view, err := uc.List(ctx, courierID, orderID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if view.Role != bo.RoleDelivery {
		t.Fatalf("role = %s", view.Role)
	}
	if len(view.Messages) != 1 || view.Messages[0].Body != "Hola" {
		t.Fatalf("courier view = %+v", view.Messages)
	}
	if view.UnreadCount != 1 {
		t.Fatalf("unread = %d, want 1", view.UnreadCount)
	}
}

func TestScenarioCourierDoesNotSeeMessagesBeforeAssignment(t *testing.T) {
	f := newFixture()
	uc := f.chat(&recordingQueue{})
	ctx := context.Background()
	f.seed(clientID, 5, "before courier", false)
	f.seed(clientID, 15, "after courier", false)
	f.seed(courierID, 16, "on my way", true)

	courierView, err := uc.List(ctx, courierID, orderID)
	if err != nil {
		t.Fatalf("courier list: %v", err)
	}
	assigned := ts(10)
	for _, m := range courierView.Messages {
		if m.CreatedAt.Before(assigned) {
			t.Fatalf("courier saw message %q created before assignment", m.Body)
		}
	}
	if len(courierView.Messages) != 2 {
		t.Fatalf("courier saw %d messages, want 2", len(courierView.Messages))
	}

	for _, uid := range []uint64{clientID, adminID} {
		view, err := uc.List(ctx, uid, orderID)
		if err != nil {
			t.Fatalf("list as %d: %v", uid, err)
		}
		if len(view.Messages) != 3 {
			t.Fatalf("user %d saw %d messages, want full history of 3", uid, len(view.Messages))
		}
		if view.Messages[0].Body != "before courier" {
			t.Fatalf("messages not oldest first: %q", view.Messages[0].Body)
		}
	}
}

func TestScenarioOversizedUploadRejectedBeforeStaging(t *testing.T) {
	f := newFixture()
	queue := &recordingQueue{}
	uc := f.chat(queue)

	_, err := uc.Send(context.Background(), clientID, &SendRequest{
		OrderID: orderID,
		Body:    "see attached",
		Upload:  &Upload{Filename: "scan.pdf", Size: 15 << 20, Body: strings.NewReader("ignored")},
	})
	if !v1.IsPayloadTooLarge(err) {
		t.Fatalf("err = %v, want PAYLOAD_TOO_LARGE", err)
	}
	if f.blob.count() != 0 {
		t.Fatalf("staged %d files, want 0", f.blob.count())
	}
	if len(queue.jobs) != 0 {
		t.Fatalf("enqueued %d jobs, want 0", len(queue.jobs))
	}
}

func TestSendUnknownSizeStillEnforcesLimit(t *testing.T) {
	f := newFixture()
	f.attachments.maxBytes = 8
	uc := f.chat(&recordingQueue{})

	_, err := uc.Send(context.Background(), clientID, &SendRequest{
		OrderID: orderID,
		Upload:  &Upload{Filename: "a.txt", Size: -1, Body: strings.NewReader("0123456789")},
	})
	if !v1.IsPayloadTooLarge(err) {
		t.Fatalf("err = %v, want PAYLOAD_TOO_LARGE", err)
	}
	if f.blob.count() != 0 {
		t.Fatal("oversized staged file was not removed")
	}
}

func TestSendRejections(t *testing.T) {
	tests := []struct {
		name  string
		user  uint64
		req   *SendRequest
		check func(error) bool
	}{
		{"anonymous", 0, &SendRequest{OrderID: orderID, Body: "hi"}, v1.IsUnauthenticated},
		{"stranger", strangerID, &SendRequest{OrderID: orderID, Body: "hi"}, v1.IsPermissionDenied},
		{"missing order", clientID, &SendRequest{OrderID: 404, Body: "hi"}, v1.IsOrderNotFound},
		{"empty body", clientID, &SendRequest{OrderID: orderID, Body: "   "}, v1.IsValidationFailed},
		{"too long", clientID, &SendRequest{OrderID: orderID, Body: strings.Repeat("a", 1001)}, v1.IsValidationFailed},
		{"image without file", clientID, &SendRequest{OrderID: orderID, Body: "x", Type: bo.MessageTypeImage}, v1.IsValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			queue := &recordingQueue{}
			_, err := f.chat(queue).Send(context.Background(), tt.user, tt.req)
			if !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
			if len(queue.jobs) != 0 {
				t.Fatal("rejected request must not enqueue a job")
			}
		})
	}
}

func TestSendQueuesStagedImage(t *testing.T) {
	f := newFixture()
	queue := &recordingQueue{}
	uc := f.chat(queue)

	res, err := uc.Send(context.Background(), clientID, &SendRequest{
		OrderID: orderID,
		Type:    bo.MessageTypeAuto,
		Upload:  &Upload{Filename: "Photo.PNG", Size: int64(len(pngBytes)), Body: bytes.NewReader(pngBytes)},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !res.Queued || res.JobID == "" {
		t.Fatalf("result = %+v", res)
	}
	job := queue.jobs[0]
	if job.Type != bo.MessageTypeImage {
		t.Fatalf("type = %s, want image", job.Type)
	}
	if job.Body != "Photo.PNG" {
		t.Fatalf("empty body should fall back to file name, got %q", job.Body)
	}
	if !strings.HasSuffix(job.Attachment.TempPath, ".png") {
		t.Fatalf("temp path %s lost the extension", job.Attachment.TempPath)
	}
	if ok, _ := f.blob.Exists(context.Background(), job.Attachment.TempPath); !ok {
		t.Fatal("attachment was not staged")
	}
}

func TestSendDiscardsStagedFileWhenQueueFails(t *testing.T) {
	f := newFixture()
	uc := f.chat(&recordingQueue{err: errors.New("broker down")})

	_, err := uc.Send(context.Background(), clientID, &SendRequest{
		OrderID: orderID,
		Upload:  &Upload{Filename: "a.txt", Size: 5, Body: strings.NewReader("hello")},
	})
	if !v1.IsQueueUnavailable(err) {
		t.Fatalf("err = %v, want QUEUE_UNAVAILABLE", err)
	}
	if f.blob.count() != 0 {
		t.Fatal("staged file left behind")
	}
}

func TestInlineSendOutlivesRequestDeadline(t *testing.T) {
	f := newFixture()
	f.deliverer.sleep = sleepContext
	f.deliverer.retry = RetryPolicy{MaxAttempts: 3, Backoff: []time.Duration{150 * time.Millisecond}}
	f.blob.moveErrs = []error{errors.New("device busy")}
	uc := f.chat(NewInlineQueue(f.deliverer))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := uc.Send(ctx, clientID, &SendRequest{
		OrderID: orderID,
		Upload:  &Upload{Filename: "a.txt", Size: 5, Body: strings.NewReader("hello")},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Message == nil || res.Message.AttachmentPath == "" {
		t.Fatalf("result = %+v", res)
	}
	if f.messages.count() != 1 {
		t.Fatalf("persisted %d messages, want 1", f.messages.count())
	}
	if f.blob.count() != 1 {
		t.Fatalf("%d files stored, want only the final attachment", f.blob.count())
	}
}

func TestInlineSendDiscardsUnfinishedJob(t *testing.T) {
	f := newFixture()
	uc := f.chat(&resultQueue{res: &bo.JobResult{
		State:    bo.JobFailedRetryable,
		Attempts: 1,
		Err:      v1.ErrorStorageFailed("device busy"),
	}})

	_, err := uc.Send(context.Background(), clientID, &SendRequest{
		OrderID: orderID,
		Upload:  &Upload{Filename: "a.txt", Size: 5, Body: strings.NewReader("hello")},
	})
	if !v1.IsStorageFailed(err) {
		t.Fatalf("err = %v, want STORAGE_FAILED", err)
	}
	if f.blob.count() != 0 {
		t.Fatal("staged file left behind")
	}
}

func TestSendRejectsMismatchedExplicitType(t *testing.T) {
	f := newFixture()
	uc := f.chat(&recordingQueue{})

	_, err := uc.Send(context.Background(), clientID, &SendRequest{
		OrderID: orderID,
		Type:    bo.MessageTypeImage,
		Upload:  &Upload{Filename: "notes.txt", Size: 5, Body: strings.NewReader("hello")},
	})
	if !v1.IsValidationFailed(err) {
		t.Fatalf("err = %v, want VALIDATION_FAILED", err)
	}
	if f.blob.count() != 0 {
		t.Fatal("staged file left behind")
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	f := newFixture()
	uc := f.chat(&recordingQueue{})
	ctx := context.Background()
	f.seed(clientID, 5, "before courier", false)
	f.seed(clientID, 15, "after courier", false)
	f.seed(courierID, 16, "on my way", true)

	n, err := uc.MarkRead(ctx, courierID, orderID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if n != 1 {
		t.Fatalf("first mark read = %d, want 1 (pre-assignment message is out of scope)", n)
	}
	n, err = uc.MarkRead(ctx, courierID, orderID)
	if err != nil || n != 0 {
		t.Fatalf("second mark read = %d, %v; want 0", n, err)
	}

	unread, err := uc.UnreadCount(ctx, clientID, orderID)
	if err != nil || unread != 1 {
		t.Fatalf("client unread = %d, %v; want 1", unread, err)
	}
}

func TestStatsFollowVisibility(t *testing.T) {
	f := newFixture()
	uc := f.chat(&recordingQueue{})
	ctx := context.Background()
	f.seed(clientID, 5, "before courier", false)
	f.seed(clientID, 15, "after courier", false)
	f.seed(courierID, 16, "on my way", true)

	admin, err := uc.Stats(ctx, adminID, orderID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if admin.TotalMessages != 3 || admin.UnreadMessages != 3 || admin.DeliveryMessages != 1 || admin.PreDeliveryMessages != 1 {
		t.Fatalf("admin stats = %+v", admin)
	}
	if admin.LastMessageAt == nil || !admin.LastMessageAt.Equal(ts(16)) {
		t.Fatalf("last message at = %v", admin.LastMessageAt)
	}

	courier, err := uc.Stats(ctx, courierID, orderID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if courier.TotalMessages != 2 || courier.UnreadMessages != 1 || courier.PreDeliveryMessages != 0 {
		t.Fatalf("courier stats = %+v", courier)
	}
}

func TestAttachmentDownload(t *testing.T) {
	f := newFixture()
	uc := f.chat(NewInlineQueue(f.deliverer))
	ctx := context.Background()

	res, err := uc.Send(ctx, clientID, &SendRequest{
		OrderID: orderID,
		Body:    "receipt",
		Upload:  &Upload{Filename: "receipt.png", Size: int64(len(pngBytes)), Body: bytes.NewReader(pngBytes)},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	att, err := uc.Attachment(ctx, courierID, orderID, res.Message.ID)
	if err != nil {
		t.Fatalf("attachment: %v", err)
	}
	defer att.Body.Close()
	data, _ := io.ReadAll(att.Body)
	if !bytes.Equal(data, pngBytes) || att.ContentType != "image/png" {
		t.Fatalf("got %d bytes of %s", len(data), att.ContentType)
	}

	text := f.seed(clientID, 25, "no file", false)
	if _, err := uc.Attachment(ctx, clientID, orderID, text.ID); !v1.IsAttachmentNotFound(err) {
		t.Fatalf("err = %v, want ATTACHMENT_NOT_FOUND", err)
	}
	early := f.seed(clientID, 5, "early", false)
	if _, err := uc.Attachment(ctx, courierID, orderID, early.ID); !v1.IsMessageNotFound(err) {
		t.Fatalf("err = %v, want MESSAGE_NOT_FOUND for pre-assignment message", err)
	}
	if _, err := uc.Attachment(ctx, strangerID, orderID, res.Message.ID); !v1.IsPermissionDenied(err) {
		t.Fatalf("err = %v, want PERMISSION_DENIED", err)
	}
}
