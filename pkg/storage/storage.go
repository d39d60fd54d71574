package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/feichai0017/idrouter/config"
	"github.com/feichai0017/idrouter/pkg/logger"
	"github.com/feichai0017/idrouter/pkg/storage/minio"
	"github.com/feichai0017/idrouter/pkg/storage/s3"
)

// Storage 接口定义
type Storage interface {
	// Store 存储文件
	Store(ctx context.Context, reader io.Reader, size int64, key string) (string, error)
	// Get 获取文件
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete 删除文件
	Delete(ctx context.Context, key string) error
}

// NewStorage 创建存储实例的工厂方法. The "none" archive yields a nil Storage.
func NewStorage(ctx context.Context, cfg config.ArchiveConfig, log logger.Logger) (Storage, error) {
	switch cfg.Type {
	case "", config.ArchiveNone:
		return nil, nil
	case config.ArchiveS3:
		store, err := s3.NewS3Storage(ctx, cfg.S3, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.ArchiveMinio:
		store, err := minio.NewMinioStorage(ctx, cfg.Minio, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// ObjectKey maps a file under root to a slash-separated key under prefix.
func ObjectKey(prefix, root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", file, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", file, root)
	}
	return path.Join(strings.Trim(prefix, "/"), filepath.ToSlash(rel)), nil
}

// Archiver mirrors routed files into a Storage.
type Archiver struct {
	store  Storage
	prefix string
	root   string
	logger logger.Logger
}

func NewArchiver(store Storage, prefix, root string, log logger.Logger) *Archiver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Archiver{
		store:  store,
		prefix: prefix,
		root:   root,
		logger: log.Named("archive"),
	}
}

// Archive uploads file and returns its key.
func (a *Archiver) Archive(ctx context.Context, file string) (string, error) {
	key, err := ObjectKey(a.prefix, a.root, file)
	if err != nil {
		return "", err
	}

	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", file, err)
	}

	stored, err := a.store.Store(ctx, f, info.Size(), key)
	if err != nil {
		return "", err
	}
	a.logger.Debug("Archived document",
		logger.String("path", file),
		logger.String("key", stored),
	)
	return stored, nil
}
