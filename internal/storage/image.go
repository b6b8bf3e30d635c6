package storage

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"socialverse-backend/internal/errors"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageBytes 图片附件大小上限
const MaxImageBytes int64 = 5 << 20

const sniffLen = 3072

// ValidateImage 上传前的客户端校验：大小不超过上限，类型必须是 image/*。
// 未声明类型时按内容嗅探，嗅探会消耗 Body 的前若干字节，因此会替换 f.Body。
func ValidateImage(f *File, maxBytes int64) error {
	if f == nil {
		return errors.New(errors.ErrValidation, "no file attached")
	}
	if maxBytes <= 0 {
		maxBytes = MaxImageBytes
	}
	if f.Size <= 0 {
		return errors.New(errors.ErrValidation, "file is empty")
	}
	if f.Size > maxBytes {
		return errors.New(errors.ErrImageTooLarge,
			fmt.Sprintf("image must be %d MB or smaller", maxBytes>>20))
	}

	contentType := strings.ToLower(strings.TrimSpace(f.ContentType))
	if contentType == "" && f.Body != nil {
		head := make([]byte, sniffLen)
		n, err := io.ReadFull(f.Body, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return errors.Wrap(errors.ErrValidation, "cannot read file", err)
		}
		head = head[:n]
		contentType = mimetype.Detect(head).String()
		f.Body = io.MultiReader(bytes.NewReader(head), f.Body)
		f.ContentType = contentType
	}
	if !strings.HasPrefix(contentType, "image/") {
		return errors.New(errors.ErrUnsupportedImage, "only image files can be attached")
	}
	return nil
}

// LimitBody 防止实际写入的字节数超过声明的大小
func LimitBody(f *File, maxBytes int64) io.Reader {
	return &limitedReader{r: f.Body, remaining: maxBytes}
}

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, errors.New(errors.ErrImageTooLarge, "image exceeds size limit")
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, errors.New(errors.ErrImageTooLarge, "image exceeds size limit")
	}
	return n, err
}
