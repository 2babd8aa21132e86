package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeRoomCode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want RoomCode
	}{
		{"plain", "482913", "482913"},
		{"leading zeros", "000042", "000042"},
		{"surrounding whitespace", "  482913\n", "482913"},
		{"too short", "12345", ""},
		{"too long", "1234567", ""},
		{"letters", "48a913", ""},
		{"interior space", "482 913", ""},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeRoomCode(tt.raw))
		})
	}
}

func TestConnectionContext_BindsOnce(t *testing.T) {
	ctx := NewConnectionContext("conn-1")
	assert.Equal(t, RoleUnbound, ctx.Role)

	require.NoError(t, ctx.BindHost("482913"))
	assert.Equal(t, RoleHost, ctx.Role)
	assert.Equal(t, RoomCode("482913"), ctx.RoomCode)

	// Once bound, the role never changes.
	assert.ErrorIs(t, ctx.BindHost("111111"), ErrAlreadyRegistered)
	assert.ErrorIs(t, ctx.BindViewer("111111", "v-1"), ErrAlreadyInRoom)
	assert.Equal(t, RoomCode("482913"), ctx.RoomCode)
}

func TestConnectionContext_BindViewer(t *testing.T) {
	ctx := NewConnectionContext("conn-2")
	require.NoError(t, ctx.BindViewer("482913", "v-1"))
	assert.Equal(t, RoleViewer, ctx.Role)
	assert.Equal(t, ViewerID("v-1"), ctx.ViewerID)

	assert.ErrorIs(t, ctx.BindViewer("482913", "v-2"), ErrAlreadyInRoom)
}
