package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmynk/dutch/internal/auth"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{header: "Bearer abc.def", want: "abc.def"},
		{header: "bearer abc", want: "abc"},
		{header: "", wantErr: auth.ErrMissingToken},
		{header: "Basic abc", wantErr: auth.ErrInvalidToken},
		{header: "Bearer", wantErr: auth.ErrInvalidToken},
		{header: "Bearer ", wantErr: auth.ErrInvalidToken},
	}
	for _, tt := range tests {
		got, err := bearerToken(tt.header)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, "header %q", tt.header)
			continue
		}
		assert.NoError(t, err, "header %q", tt.header)
		assert.Equal(t, tt.want, got)
	}
}

func TestWithUser(t *testing.T) {
	ctx := WithUser(context.Background(), "user-1", "alice")
	assert.Equal(t, "user-1", GetUserID(ctx))
	assert.Equal(t, "alice", GetUsername(ctx))
	assert.Empty(t, GetUserID(context.Background()))
}
