package storage

import (
	"fmt"
	"net/http"

	"github.com/spf13/afero"

	"realestate/internal/config"
)

// UploadsPrefix 是本地磁盘图片对外提供的 URL 路径。
const UploadsPrefix = "/uploads"

// Backend 是可以列举对象的存储。
type Backend interface {
	ImageStore
	Lister
}

// Open 按 cfg.Storage.Driver 创建存储后端。使用 disk 驱动时，
// 还会返回 API 在 UploadsPrefix 下提供的文件系统。
func Open(cfg *config.Config) (Backend, http.FileSystem, error) {
	switch cfg.Storage.Driver {
	case "minio":
		store, err := NewMinIOStore(cfg.MinIO)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case "disk", "":
		fsys := afero.NewOsFs()
		store, err := NewDiskStore(fsys, cfg.Storage.DiskPath, UploadsPrefix)
		if err != nil {
			return nil, nil, err
		}
		return store, afero.NewHttpFs(fsys).Dir(cfg.Storage.DiskPath), nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
