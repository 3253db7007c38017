// Package storage 负责在数据库之外保存房源图片。
package storage

import (
	"context"
	"io"
	"time"
)

// ImageStore 是房源图片的存储，Remove 对不存在的对象视为成功。
type ImageStore interface {
	Store(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, name string) error
	URL(ctx context.Context, name string) (string, error)
}

// Lister 由可以列举对象的存储实现。
type Lister interface {
	List(ctx context.Context) ([]ObjectMeta, error)
}

// ObjectMeta 描述一个已存对象。
type ObjectMeta struct {
	Key          string
	Size         int64
	LastModified time.Time
}
