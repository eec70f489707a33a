package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-kratos/kratos/v2/log"
)

const defaultStorageRoot = "storage/app"

var _ biz.BlobStore = (*diskBlobStore)(nil)

// diskBlobStore 本地磁盘存储，多节点部署时挂载共享卷
type diskBlobStore struct {
	root string
	log  *log.Helper
}

// NewBlobStore 创建附件存储
func NewBlobStore(cb *conf.Bootstrap, logger log.Logger) (biz.BlobStore, error) {
	root := defaultStorageRoot
	if cb.Storage != nil && cb.Storage.Root != "" {
		root = cb.Storage.Root
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &diskBlobStore{root: abs, log: log.NewHelper(logger)}, nil
}

// resolve 相对路径转为根目录下的绝对路径，拒绝越界路径
func (s *diskBlobStore) resolve(p string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(p))
	full := filepath.Join(s.root, clean)
	if full == s.root || !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage path %q", p)
	}
	return full, nil
}

func (s *diskBlobStore) Store(ctx context.Context, p string, r io.Reader) (int64, error) {
	full, err := s.resolve(p)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(full)
		return n, fmt.Errorf("write file: %w", err)
	}
	return n, nil
}

// Move 同一文件系统内直接 rename，否则复制后删除源文件
func (s *diskBlobStore) Move(ctx context.Context, src, dst string) error {
	from, err := s.resolve(src)
	if err != nil {
		return err
	}
	to, err := s.resolve(dst)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.Rename(from, to); err == nil {
		return nil
	} else if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("move %s: %w", src, err)
	}
	if err := copyFile(from, to); err != nil {
		_ = os.Remove(to)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := os.Remove(from); err != nil {
		s.log.WithContext(ctx).Warnf("remove moved source failed. path=%s, error=%v", src, err)
	}
	return nil
}

func copyFile(from, to string) error {
	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(to, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Delete 文件不存在视为成功
func (s *diskBlobStore) Delete(ctx context.Context, p string) error {
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *diskBlobStore) Exists(ctx context.Context, p string) (bool, error) {
	full, err := s.resolve(p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// MimeType 按文件内容识别，不信任扩展名
func (s *diskBlobStore) MimeType(ctx context.Context, p string) (string, error) {
	full, err := s.resolve(p)
	if err != nil {
		return "", err
	}
	mt, err := mimetype.DetectFile(full)
	if err != nil {
		return "", err
	}
	return mt.String(), nil
}

func (s *diskBlobStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	full, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}
