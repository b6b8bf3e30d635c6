package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"socialverse-backend/internal/util"

	"go.uber.org/zap"
)

type LocalStorage struct {
	basePath  string
	publicURL string
	maxBytes  int64
}

// NewLocalStorage publicURL 是 basePath 对外暴露的地址，例如 http://host/uploads
func NewLocalStorage(basePath, publicURL string, maxBytes int64) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &LocalStorage{
		basePath:  basePath,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxBytes:  maxBytes,
	}, nil
}

func (s *LocalStorage) UploadFile(ctx context.Context, file *File, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.basePath, fullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("非法的存储路径: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("创建文件失败: %w", err)
	}

	if _, err = io.Copy(dst, LimitBody(file, s.maxBytes)); err != nil {
		dst.Close()
		os.Remove(fullPath)
		return "", fmt.Errorf("保存文件失败: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("保存文件失败: %w", err)
	}

	util.Logger.Info("文件上传成功", zap.String("fullPath", fullPath))
	return s.publicURL + "/" + filepath.ToSlash(rel), nil
}
