package biz

import (
	"context"
	"io"
	"path"
	"strconv"
	"strings"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

const (
	defaultMaxAttachmentBytes = 10 << 20
	defaultTempDir            = "tmp/chat"
	defaultAttachmentDir      = "chat/orders"
	fallbackMimeType          = "application/octet-stream"
)

// BlobStore 附件存储，路径为存储根目录下的相对路径
type BlobStore interface {
	Store(ctx context.Context, p string, r io.Reader) (int64, error)
	Move(ctx context.Context, src, dst string) error
	Delete(ctx context.Context, p string) error
	Exists(ctx context.Context, p string) (bool, error)
	MimeType(ctx context.Context, p string) (string, error)
	Open(ctx context.Context, p string) (io.ReadCloser, error)
}

// Upload 请求中的上传文件
type Upload struct {
	Filename string
	Size     int64 // 未知时为 -1
	Body     io.Reader
}

// AttachmentPipeline 附件暂存、转正与清理
type AttachmentPipeline struct {
	blob          BlobStore
	log           *log.Helper
	maxBytes      int64
	tempDir       string
	attachmentDir string
	newName       func() string
}

// NewAttachmentPipeline 创建附件流水线
func NewAttachmentPipeline(cb *conf.Bootstrap, blob BlobStore, logger log.Logger) *AttachmentPipeline {
	p := &AttachmentPipeline{
		blob:          blob,
		log:           log.NewHelper(logger),
		maxBytes:      defaultMaxAttachmentBytes,
		tempDir:       defaultTempDir,
		attachmentDir: defaultAttachmentDir,
		newName:       uuid.NewString,
	}
	if c := cb.Chat; c != nil {
		if c.MaxAttachmentBytes > 0 {
			p.maxBytes = c.MaxAttachmentBytes
		}
		if c.TempDir != "" {
			p.tempDir = c.TempDir
		}
		if c.AttachmentDir != "" {
			p.attachmentDir = c.AttachmentDir
		}
	}
	return p
}

// MaxBytes 附件大小上限
func (p *AttachmentPipeline) MaxBytes() int64 {
	return p.maxBytes
}

// CheckSize 在暂存前拒绝超限的上传
func (p *AttachmentPipeline) CheckSize(size int64) error {
	if size > p.maxBytes {
		return v1.ErrorPayloadTooLarge("attachment is %d bytes, max is %d", size, p.maxBytes)
	}
	return nil
}

// Stage 把上传内容写入临时目录，并根据 MIME 推断内容类别
func (p *AttachmentPipeline) Stage(ctx context.Context, up *Upload) (*bo.PendingAttachment, error) {
	if err := p.CheckSize(up.Size); err != nil {
		return nil, err
	}
	tempPath := path.Join(p.tempDir, p.newName()+Extension(up.Filename))
	// 多读一个字节用于判断实际内容是否超限
	written, err := p.blob.Store(ctx, tempPath, io.LimitReader(up.Body, p.maxBytes+1))
	if err != nil {
		p.deleteQuietly(ctx, tempPath)
		return nil, v1.ErrorStorageFailed("stage attachment: %v", err)
	}
	if written > p.maxBytes {
		p.deleteQuietly(ctx, tempPath)
		return nil, v1.ErrorPayloadTooLarge("attachment exceeds %d bytes", p.maxBytes)
	}
	mimeType, err := p.blob.MimeType(ctx, tempPath)
	if err != nil || mimeType == "" {
		p.log.WithContext(ctx).Warnf("detect mime failed. path=%s, error=%v", tempPath, err)
		mimeType = fallbackMimeType
	}
	return &bo.PendingAttachment{
		TempPath:     tempPath,
		OriginalName: path.Base(strings.ReplaceAll(up.Filename, "\\", "/")),
		MimeType:     mimeType,
		ContentClass: ContentClass(mimeType),
		Size:         written,
	}, nil
}

// Finalize 将暂存文件移动到订单目录，返回最终路径
// 最终文件名由任务ID决定，重新投递的任务能找到之前已移动的文件
// 暂存文件不存在时返回 ATTACHMENT_MISSING，其余存储错误返回可重试的 STORAGE_FAILED
func (p *AttachmentPipeline) Finalize(ctx context.Context, pending *bo.PendingAttachment, orderID uint64, jobID string) (string, error) {
	dst := p.finalPath(orderID, jobID, pending.OriginalName)
	ok, err := p.blob.Exists(ctx, dst)
	if err != nil {
		return "", v1.ErrorStorageFailed("check final attachment: %v", err)
	}
	if ok {
		pending.FinalPath = dst
		return dst, nil
	}
	ok, err = p.blob.Exists(ctx, pending.TempPath)
	if err != nil {
		return "", v1.ErrorStorageFailed("check staged attachment: %v", err)
	}
	if !ok {
		return "", v1.ErrorAttachmentMissing("staged attachment %s no longer exists", pending.TempPath)
	}
	if err := p.blob.Move(ctx, pending.TempPath, dst); err != nil {
		return "", v1.ErrorStorageFailed("move attachment: %v", err)
	}
	pending.FinalPath = dst
	return dst, nil
}

// finalPath 订单目录/<任务ID><扩展名>，任务ID不能作为文件名时退化为随机名
func (p *AttachmentPipeline) finalPath(orderID uint64, jobID, originalName string) string {
	name := jobID
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		name = p.newName()
	}
	return path.Join(p.attachmentDir, strconv.FormatUint(orderID, 10), name+Extension(originalName))
}

// Discard 尽力删除暂存文件以及未入库的最终文件，不返回错误
func (p *AttachmentPipeline) Discard(ctx context.Context, pending *bo.PendingAttachment) {
	if pending == nil {
		return
	}
	p.deleteQuietly(ctx, pending.TempPath)
	if pending.FinalPath != "" {
		p.deleteQuietly(ctx, pending.FinalPath)
	}
}

// Open 打开已入库的附件
func (p *AttachmentPipeline) Open(ctx context.Context, finalPath string) (io.ReadCloser, string, error) {
	ok, err := p.blob.Exists(ctx, finalPath)
	if err != nil {
		return nil, "", v1.ErrorStorageFailed("check attachment: %v", err)
	}
	if !ok {
		return nil, "", v1.ErrorAttachmentNotFound("attachment not found")
	}
	mimeType, err := p.blob.MimeType(ctx, finalPath)
	if err != nil || mimeType == "" {
		mimeType = fallbackMimeType
	}
	rc, err := p.blob.Open(ctx, finalPath)
	if err != nil {
		return nil, "", v1.ErrorStorageFailed("open attachment: %v", err)
	}
	return rc, mimeType, nil
}

func (p *AttachmentPipeline) deleteQuietly(ctx context.Context, target string) {
	if target == "" {
		return
	}
	if err := p.blob.Delete(ctx, target); err != nil {
		p.log.WithContext(ctx).Warnf("discard attachment failed. path=%s, error=%v", target, err)
	}
}

// ContentClass image/* 归为图片，其余为文件
func ContentClass(mimeType string) bo.MessageType {
	if strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		return bo.MessageTypeImage
	}
	return bo.MessageTypeFile
}

// Extension 取原始文件名的扩展名，统一小写，非法扩展名返回空
func Extension(filename string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))
	if len(ext) < 2 || len(ext) > 16 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
