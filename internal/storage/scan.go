package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dutchcoders/go-clamd"
)

// ErrInfected 表示扫描器判定上传文件有害。
var ErrInfected = errors.New("malicious file detected")

// Scanner 在保存前检查上传文件。
type Scanner interface {
	Scan(ctx context.Context, r io.Reader) error
}

// NopScanner 放行所有文件，未配置 clamd 地址时使用。
type NopScanner struct{}

func (NopScanner) Scan(context.Context, io.Reader) error { return nil }

// ClamdScanner 将上传内容以流的方式发送给 clamd 守护进程。
type ClamdScanner struct {
	addr string
}

// NewClamdScanner 返回连接 addr 的扫描器（tcp://host:port 或 unix socket 路径）。
func NewClamdScanner(addr string) *ClamdScanner {
	return &ClamdScanner{addr: addr}
}

// NewScanner 在设置了 addr 时返回 ClamdScanner，否则返回 NopScanner。
func NewScanner(addr string) Scanner {
	if addr == "" {
		return NopScanner{}
	}
	return NewClamdScanner(addr)
}

// Scan 在 clamd 返回非 OK 结果时返回 ErrInfected。
func (s *ClamdScanner) Scan(ctx context.Context, r io.Reader) error {
	client := clamd.NewClamd(s.addr)

	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := client.ScanStream(r, abortChan)
	if err != nil {
		return fmt.Errorf("scan file: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result, ok := <-scanChan:
			if !ok {
				return nil
			}
			switch result.Status {
			case clamd.RES_OK:
			case clamd.RES_FOUND:
				return fmt.Errorf("%w: %s", ErrInfected, result.Description)
			default:
				return fmt.Errorf("scan file: %s %s", result.Status, result.Description)
			}
		}
	}
}
