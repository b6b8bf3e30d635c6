package gateway

import (
	"strings"
	"unicode/utf8"

	"socialverse-backend/internal/errors"
	"socialverse-backend/internal/model"
	"socialverse-backend/internal/storage"
)

// 以下校验在任何网络调用之前执行，服务端与客户端共用

func ValidatePost(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errors.New(errors.ErrValidation, "post content is required")
	}
	if utf8.RuneCountInString(content) > model.MaxPostLength {
		return "", errors.New(errors.ErrPostTooLong, "post must be 280 characters or fewer")
	}
	return content, nil
}

func ValidateMessage(text string, image *storage.File, maxImageBytes int64) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" && image == nil {
		return "", errors.New(errors.ErrEmptyMessage, "message needs text or an image")
	}
	if image != nil {
		if err := storage.ValidateImage(image, maxImageBytes); err != nil {
			return "", err
		}
	}
	return text, nil
}

func ValidateFollow(followerID, followingID string) error {
	if followerID == "" || followingID == "" {
		return errors.New(errors.ErrValidation, "user id is required")
	}
	if followerID == followingID {
		return errors.New(errors.ErrSelfFollow, "you cannot follow yourself")
	}
	return nil
}

func RequireIDs(ids ...string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return errors.New(errors.ErrValidation, "id is required")
		}
	}
	return nil
}
