package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTitleFrom(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"short", "what is rust", "what is rust"},
		{"exactly fifty", strings.Repeat("a", 50), strings.Repeat("a", 50)},
		{"fifty one", strings.Repeat("a", 51), strings.Repeat("a", 50) + "..."},
		{"multibyte counted as characters", strings.Repeat("é", 60), strings.Repeat("é", 50) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFrom(tt.text))
		})
	}
}

func TestHistory(t *testing.T) {
	now := time.Now()
	msgs := []Message{
		{ID: "1", Role: RoleAssistant, Content: "welcome", CreatedAt: now},
		{ID: "2", Role: RoleUser, Content: "hi", CreatedAt: now},
	}

	got := History(msgs)
	assert.Equal(t, []HistoryEntry{
		{Role: RoleAssistant, Content: "welcome"},
		{Role: RoleUser, Content: "hi"},
	}, got)
	assert.Empty(t, History(nil))
}
