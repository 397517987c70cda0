package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCommand(t *testing.T) {
	def := cleanupDetail{MaxIdle: "8h", Limit: 500}

	tests := []struct {
		name        string
		detail      string
		wantIdle    time.Duration
		wantLimit   int
		expectError bool
	}{
		{name: "empty detail uses defaults", detail: "", wantIdle: 8 * time.Hour, wantLimit: 500},
		{name: "null detail uses defaults", detail: "null", wantIdle: 8 * time.Hour, wantLimit: 500},
		{name: "override", detail: `{"max_idle":"30m","limit":10}`, wantIdle: 30 * time.Minute, wantLimit: 10},
		{name: "partial override", detail: `{"limit":3}`, wantIdle: 8 * time.Hour, wantLimit: 3},
		{name: "bad duration", detail: `{"max_idle":"soon"}`, expectError: true},
		{name: "bad json", detail: `{`, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := buildCommand(json.RawMessage(tt.detail), def)

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIdle, cmd.MaxIdle)
			assert.Equal(t, tt.wantLimit, cmd.Limit)
			assert.Equal(t, schedulerUser, cmd.RequestBy)
			assert.NoError(t, cmd.Validate())
		})
	}
}
