// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/aurastream/internal/media"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ErrorNone},
		{"canceled", context.Canceled, ErrorAborted},
		{"wrapped canceled", fmt.Errorf("load: %w", context.Canceled), ErrorAborted},
		{"deadline", context.DeadlineExceeded, ErrorNetwork},
		{"not found", fmt.Errorf("%w: /t.mp3", media.ErrNotFound), ErrorNotFound},
		{"decode", fmt.Errorf("%w: content-type \"text/html\"", media.ErrDecode), ErrorDecode},
		{
			"upstream 503",
			fmt.Errorf("%w: status 503 fetching https://cdn.example/t.mp3", media.ErrUpstream),
			ErrorNetwork,
		},
		{
			"connection refused",
			&url.Error{Op: "Get", URL: "https://cdn.example/t.mp3", Err: errors.New("connection refused")},
			ErrorNetwork,
		},
		{"opaque", errors.New("something odd"), ErrorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestErrorCategory_CountsTowardBreaker(t *testing.T) {
	assert.True(t, ErrorNetwork.CountsTowardBreaker())
	assert.True(t, ErrorDecode.CountsTowardBreaker())
	assert.True(t, ErrorStall.CountsTowardBreaker())

	// Unknown failures are retried but are not evidence of origin
	// degradation; neither are not-found or user aborts.
	assert.False(t, ErrorUnknown.CountsTowardBreaker())
	assert.False(t, ErrorNotFound.CountsTowardBreaker())
	assert.False(t, ErrorAborted.CountsTowardBreaker())
	assert.False(t, ErrorNone.CountsTowardBreaker())
}

func TestErrorCategory_Retryable(t *testing.T) {
	assert.True(t, ErrorNetwork.Retryable())
	assert.True(t, ErrorDecode.Retryable())
	assert.True(t, ErrorStall.Retryable())
	assert.True(t, ErrorUnknown.Retryable())

	assert.False(t, ErrorNotFound.Retryable())
	assert.False(t, ErrorAborted.Retryable())
}
