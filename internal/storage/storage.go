package storage

import (
	"context"
	"io"
	"mime/multipart"
)

// File 待上传的文件
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Storage 对象存储，返回可公开访问的URL
type Storage interface {
	UploadFile(ctx context.Context, file *File, path string) (string, error)
}

// FromMultipart 将表单文件转换为 File，调用方负责关闭返回的 io.Closer
func FromMultipart(fh *multipart.FileHeader) (*File, io.Closer, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        src,
	}, src, nil
}
