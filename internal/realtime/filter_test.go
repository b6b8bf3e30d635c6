package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterMatch(t *testing.T) {
	thread := AnyOf(
		Where("sender_id", "a", "recipient_id", "b"),
		Where("sender_id", "b", "recipient_id", "a"),
	)

	assert.True(t, thread.Match(map[string]string{"sender_id": "a", "recipient_id": "b"}))
	assert.True(t, thread.Match(map[string]string{"sender_id": "b", "recipient_id": "a", "id": "x"}))
	assert.False(t, thread.Match(map[string]string{"sender_id": "a", "recipient_id": "c"}))
	assert.False(t, thread.Match(map[string]string{"sender_id": "a"}))
}

func TestEmptyFilterMatchesAll(t *testing.T) {
	assert.True(t, Filter(nil).Match(map[string]string{"id": "1"}))
	assert.True(t, Filter(nil).Match(nil))
}

func TestWherePanicsOnOddArgs(t *testing.T) {
	assert.Panics(t, func() { Where("sender_id") })
}

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, AnyOf(Where("post_id", "p1")).Validate())
	assert.Error(t, AnyOf(Clause{"": "x"}).Validate())
}

func TestAuthorizeViewer(t *testing.T) {
	assert.NoError(t, AuthorizeViewer("a", TablePosts, nil))
	assert.NoError(t, AuthorizeViewer("a", TableMessages, AnyOf(
		Where("sender_id", "a", "recipient_id", "b"),
		Where("sender_id", "b", "recipient_id", "a"),
	)))
	assert.NoError(t, AuthorizeViewer("a", TableMessages, AnyOf(Where("recipient_id", "a"))))

	assert.Error(t, AuthorizeViewer("a", TableMessages, nil))
	assert.Error(t, AuthorizeViewer("a", TableMessages, AnyOf(
		Where("sender_id", "a"),
		Where("sender_id", "b", "recipient_id", "c"),
	)))
}
