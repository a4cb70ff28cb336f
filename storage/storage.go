package storage

import (
	"context"
	"fmt"
	"time"

	"soundhub/config"
)

// Presigner mints time-limited object URLs. Both drivers satisfy media.ObjectPresigner.
type Presigner interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// NewPresigner 根据 STORAGE_DRIVER 创建对应的存储客户端
func NewPresigner(cfg *config.Config) (Presigner, error) {
	switch cfg.StorageDriver {
	case "minio", "":
		return NewMinioStore(cfg)
	case "s3":
		return NewS3Store(cfg), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q (choices: minio, s3)", cfg.StorageDriver)
	}
}
