package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
)

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// PrefixStats 某个媒体目录下的统计信息
type PrefixStats struct {
	Prefix       string
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ListObjects 列出前缀下的所有对象
func (m *MinioStore) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}
	return objects, nil
}

// Stats 汇总每个前缀的对象数量和大小
func (m *MinioStore) Stats(ctx context.Context, prefixes []string) ([]PrefixStats, error) {
	stats := make([]PrefixStats, 0, len(prefixes))
	for _, prefix := range prefixes {
		objects, err := m.ListObjects(ctx, prefix)
		if err != nil {
			return nil, err
		}
		stats = append(stats, Summarize(prefix, objects))
	}
	return stats, nil
}

// Summarize folds objects into PrefixStats.
func Summarize(prefix string, objects []ObjectInfo) PrefixStats {
	s := PrefixStats{Prefix: prefix}
	for _, obj := range objects {
		s.TotalObjects++
		s.TotalSize += obj.Size
		if obj.LastModified.After(s.LastModified) {
			s.LastModified = obj.LastModified
		}
	}
	return s
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
