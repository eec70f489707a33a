package biz

import (
	"context"
	"errors"
	"strings"
	"testing"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
)

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"photo.JPG":           ".jpg",
		"archive.tar.gz":      ".gz",
		"README":              "",
		"weird.ex e":          "",
		`C:\docs\invoice.pdf`: ".pdf",
		"x.abcdefghijklmnopq": "",
	}
	for name, want := range tests {
		if got := Extension(name); got != want {
			t.Errorf("Extension(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestContentClass(t *testing.T) {
	if ContentClass("image/png") != bo.MessageTypeImage {
		t.Error("image/png should be an image")
	}
	if ContentClass("IMAGE/WEBP") != bo.MessageTypeImage {
		t.Error("mime comparison should ignore case")
	}
	if ContentClass("application/pdf") != bo.MessageTypeFile {
		t.Error("application/pdf should be a file")
	}
}

func TestStageKeepsExtensionAndDetectsClass(t *testing.T) {
	f := newFixture()
	f.attachments.newName = func() string { return "fixed" }

	pending, err := f.attachments.Stage(context.Background(), &Upload{
		Filename: `C:\Users\ana\Recibo.PNG`,
		Size:     int64(len(pngBytes)),
		Body:     strings.NewReader(string(pngBytes)),
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if pending.TempPath != "tmp/chat/fixed.png" {
		t.Fatalf("temp path = %s", pending.TempPath)
	}
	if pending.OriginalName != "Recibo.PNG" {
		t.Fatalf("original name = %s", pending.OriginalName)
	}
	if pending.ContentClass != bo.MessageTypeImage || pending.MimeType != "image/png" {
		t.Fatalf("class = %s, mime = %s", pending.ContentClass, pending.MimeType)
	}
	if pending.Size != int64(len(pngBytes)) {
		t.Fatalf("size = %d", pending.Size)
	}
}

func TestFinalizeMovesIntoOrderDirectory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pending, err := f.attachments.Stage(ctx, &Upload{Filename: "a.txt", Size: 5, Body: strings.NewReader("hello")})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	dst, err := f.attachments.Finalize(ctx, pending, orderID, "job-1")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if dst != "chat/orders/42/job-1.txt" {
		t.Fatalf("final path = %s", dst)
	}
	if ok, _ := f.blob.Exists(ctx, pending.TempPath); ok {
		t.Fatal("temp file still present after finalize")
	}

	// 已转正的附件再次 Finalize 直接复用
	again, err := f.attachments.Finalize(ctx, pending, orderID, "job-1")
	if err != nil || again != dst {
		t.Fatalf("second finalize = %s, %v", again, err)
	}
	if f.blob.moves != 1 {
		t.Fatalf("moves = %d, want 1", f.blob.moves)
	}
}

func TestFinalizeErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.attachments.Finalize(ctx, &bo.PendingAttachment{TempPath: "tmp/chat/gone.png"}, orderID, "job-gone")
	if !v1.IsAttachmentMissing(err) {
		t.Fatalf("missing temp: %v", err)
	}

	pending, _ := f.attachments.Stage(ctx, &Upload{Filename: "a.txt", Size: 5, Body: strings.NewReader("hello")})
	f.blob.moveErrs = []error{errors.New("read-only file system")}
	_, err = f.attachments.Finalize(ctx, pending, orderID, "job-eio")
	if !v1.IsStorageFailed(err) {
		t.Fatalf("move failure: %v", err)
	}
	if ok, _ := f.blob.Exists(ctx, pending.TempPath); !ok {
		t.Fatal("temp file must survive a retryable failure")
	}
}

func TestFinalizeFindsEarlierMoveOnRedelivery(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pending, _ := f.attachments.Stage(ctx, &Upload{Filename: "a.txt", Size: 5, Body: strings.NewReader("hello")})
	snapshot := *pending
	if _, err := f.attachments.Finalize(ctx, pending, orderID, "job-7"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// 重新投递的任务来自队列中的原始载荷，没有 FinalPath
	dst, err := f.attachments.Finalize(ctx, &snapshot, orderID, "job-7")
	if err != nil {
		t.Fatalf("redelivered finalize: %v", err)
	}
	if dst != "chat/orders/42/job-7.txt" || snapshot.FinalPath != dst {
		t.Fatalf("final path = %s, recorded %s", dst, snapshot.FinalPath)
	}
	if f.blob.moves != 1 {
		t.Fatalf("moves = %d, want 1", f.blob.moves)
	}
}

func TestFinalizeUnsafeJobIDFallsBackToRandomName(t *testing.T) {
	f := newFixture()
	f.attachments.newName = func() string { return "fixed" }
	ctx := context.Background()
	pending, _ := f.attachments.Stage(ctx, &Upload{Filename: "a.txt", Size: 5, Body: strings.NewReader("hello")})

	dst, err := f.attachments.Finalize(ctx, pending, orderID, "../../etc")
	if err != nil || dst != "chat/orders/42/fixed.txt" {
		t.Fatalf("finalize = %s, %v", dst, err)
	}
}

func TestDiscardRemovesTempAndFinal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pending, _ := f.attachments.Stage(ctx, &Upload{Filename: "a.txt", Size: 5, Body: strings.NewReader("hello")})
	if _, err := f.attachments.Finalize(ctx, pending, orderID, "job-discard"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	f.attachments.Discard(ctx, pending)
	f.attachments.Discard(ctx, nil)
	if f.blob.count() != 0 {
		t.Fatalf("%d files left after discard", f.blob.count())
	}
}

func TestOpenMissingAttachment(t *testing.T) {
	f := newFixture()
	_, _, err := f.attachments.Open(context.Background(), "chat/orders/42/nope.png")
	if !v1.IsAttachmentNotFound(err) {
		t.Fatalf("err = %v", err)
	}
}
