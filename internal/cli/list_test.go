// Package cli: list_test.go contains unit tests for the pure formatting
// functions used by the list command.
package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pathtofile/dockenv/internal/model"
)

// TestFormatAge verifies relative ages and the unknown-time placeholder.
func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{name: "zero time", t: time.Time{}, want: "-"},
		{name: "hours", t: now.Add(-3 * time.Hour), want: "3 hours ago"},
		{name: "days", t: now.Add(-48 * time.Hour), want: "2 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAge(tt.t, now))
		})
	}
}

// TestFormatSize verifies SI sizes and the unknown-size placeholder.
func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{size: 0, want: "-"},
		{size: -1, want: "-"},
		{size: 999, want: "999 B"},
		{size: 1_100_000_000, want: "1.1 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSize(tt.size))
		})
	}
}

// TestFormatListText verifies the table layout.
func TestFormatListText(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "No virtual envs found.\n", formatListText(nil, now))
	})

	t.Run("rows", func(t *testing.T) {
		out := formatListText([]model.Env{
			{Name: "aaa", BaseImage: "python:3", Size: 1_100_000_000, CreatedAt: now.Add(-48 * time.Hour)},
			{Name: "bbb:v2"},
		}, now)

		lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
		assert.Len(t, lines, 4)
		assert.Equal(t, "Dockenv virtual envs:", lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "NAME"))

		assert.Equal(t, []string{"aaa", "2", "days", "ago", "1.1", "GB", "python:3"}, strings.Fields(lines[2]))
		assert.Equal(t, []string{"bbb:v2", "-", "-", "-"}, strings.Fields(lines[3]))
	})
}
