package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image too large")
)

var allowedImageTypes = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
}

// Image 是解码并重新编码后的上传图片，可直接保存。
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size 返回编码后的字节数。
func (i *Image) Size() int64 { return int64(len(i.Data)) }

// Reader 返回读取编码结果的新 reader。
func (i *Image) Reader() io.Reader { return bytes.NewReader(i.Data) }

// SanitizeImage 探测 r 的类型，解码后按原格式重新编码以去除元数据。
// 返回的图片使用随机文件名和真实扩展名。
func SanitizeImage(r io.Reader, maxBytes int64) (*Image, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(raw)) > maxBytes {
		return nil, ErrImageTooLarge
	}

	contentType := http.DetectContentType(raw)
	format, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}

	img, detected, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if detected != format {
		return nil, fmt.Errorf("%w: sniffed %s, decoded %s", ErrUnsupportedImage, format, detected)
	}

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}

	ext := format
	if ext == "jpeg" {
		ext = "jpg"
	}
	return &Image{
		Name:        uuid.NewString() + "." + ext,
		ContentType: contentType,
		Data:        buf.Bytes(),
	}, nil
}
