package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	t.Run("custom name wins", func(t *testing.T) {
		u := User{CustomName: "Dana", FirstName: "Daniel", Username: "dan"}
		assert.Equal(t, "Dana", u.DisplayName())
	})

	t.Run("falls back through first name and handle", func(t *testing.T) {
		assert.Equal(t, "Daniel", User{FirstName: "Daniel", Username: "dan"}.DisplayName())
		assert.Equal(t, "dan", User{Username: "dan"}.DisplayName())
		assert.Equal(t, "user42", User{TelegramID: 42}.DisplayName())
	})
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.UTC, User{}.Location())
	assert.Equal(t, time.UTC, User{Timezone: "Not/AZone"}.Location())

	loc := User{Timezone: "Asia/Jerusalem"}.Location()
	assert.Equal(t, "Asia/Jerusalem", loc.String())
}
