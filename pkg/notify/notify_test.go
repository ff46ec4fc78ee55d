package notify

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short passes through", "hi", "hi"},
		{"exactly at limit", strings.Repeat("a", 80), strings.Repeat("a", 80)},
		{"long is truncated", strings.Repeat("a", 81), strings.Repeat("a", 80) + "…"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(tt.in))
		})
	}
}

func TestPreviewCountsRunesNotBytes(t *testing.T) {
	in := strings.Repeat("é", 100)
	got := Preview(in)
	assert.Equal(t, 81, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, strings.Repeat("é", 80), strings.TrimSuffix(got, "…"))
}
