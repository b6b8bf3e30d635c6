package gateway

import (
	"strings"
	"testing"

	"socialverse-backend/internal/errors"
	"socialverse-backend/internal/storage"

	"github.com/stretchr/testify/assert"
)

func TestValidatePost(t *testing.T) {
	content, err := ValidatePost("  hello  ")
	assert.NoError(t, err)
	assert.Equal(t, "hello", content)

	_, err = ValidatePost("   ")
	assert.True(t, errors.IsValidation(err))

	_, err = ValidatePost(strings.Repeat("é", 280))
	assert.NoError(t, err)

	_, err = ValidatePost(strings.Repeat("a", 281))
	assert.Equal(t, errors.ErrPostTooLong, errors.Code(err))
}

func TestValidateMessage(t *testing.T) {
	_, err := ValidateMessage("  ", nil, storage.MaxImageBytes)
	assert.Equal(t, errors.ErrEmptyMessage, errors.Code(err))

	text, err := ValidateMessage(" hi ", nil, storage.MaxImageBytes)
	assert.NoError(t, err)
	assert.Equal(t, "hi", text)

	img := &storage.File{Name: "a.png", ContentType: "image/png", Size: 100}
	text, err = ValidateMessage("", img, storage.MaxImageBytes)
	assert.NoError(t, err)
	assert.Equal(t, "", text)

	big := &storage.File{Name: "big.png", ContentType: "image/png", Size: 6 << 20}
	_, err = ValidateMessage("look", big, storage.MaxImageBytes)
	assert.Equal(t, errors.ErrImageTooLarge, errors.Code(err))
}

func TestValidateFollow(t *testing.T) {
	assert.NoError(t, ValidateFollow("a", "b"))
	assert.Equal(t, errors.ErrSelfFollow, errors.Code(ValidateFollow("a", "a")))
	assert.True(t, errors.IsValidation(ValidateFollow("", "b")))
}
