package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestBookPatch_Apply(t *testing.T) {
	b := &Book{ID: "b-1", UserID: "u-1", Title: "Old", Author: "A", Description: "d"}

	BookPatch{Title: ptr("New"), IsPublic: ptr(true)}.Apply(b)

	assert.Equal(t, "New", b.Title)
	assert.Equal(t, "A", b.Author)
	assert.Equal(t, "d", b.Description)
	assert.True(t, b.IsPublic)
	assert.Equal(t, "u-1", b.UserID)
}

func TestBookPatch_Empty(t *testing.T) {
	assert.True(t, BookPatch{}.Empty())
	assert.False(t, BookPatch{Description: ptr("")}.Empty())
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now}
	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Nanosecond)))
}

func TestUser_Summary(t *testing.T) {
	u := &User{ID: "u-1", Name: "Ann", Email: "a@x.com", EmailVerified: true}
	assert.Equal(t, UserSummary{ID: "u-1", Email: "a@x.com", Name: "Ann"}, u.Summary())
}
