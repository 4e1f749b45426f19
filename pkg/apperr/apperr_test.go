package apperr_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
)

func TestWrappedKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{name: "storage", err: apperr.Storage("watchlist set", io.ErrUnexpectedEOF), kind: apperr.ErrStorage},
		{name: "feed", err: apperr.FeedUnavailable("fetch", io.EOF), kind: apperr.ErrFeedUnavailable},
		{name: "validation", err: apperr.Validation("bad id %q", "BTC!"), kind: apperr.ErrValidation},
		{name: "conflict", err: apperr.Conflict("email taken"), kind: apperr.ErrConflict},
		{name: "unauthorized", err: apperr.Unauthorized("invalid credentials"), kind: apperr.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.kind), "got %v, want kind %v", tt.err, tt.kind)
		})
	}
}

func TestStorageKeepsCause(t *testing.T) {
	err := apperr.Storage("watchlist get", io.ErrUnexpectedEOF)

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NotErrorIs(t, err, apperr.ErrFeedUnavailable)
	assert.Contains(t, err.Error(), "watchlist get")
}
