// Package notify is the best-effort push boundary for members that are not
// connected when a message arrives.
package notify

import (
	"context"
	"unicode/utf8"

	"github.com/haidervirk/hatch-chat/pkg/model"
)

// Dispatcher accepts one push job per (message, offline member). Jobs are
// at-most-once: a failed dispatch is logged by the caller and never retried
// synchronously.
type Dispatcher interface {
	Push(ctx context.Context, job model.PushJob) error
}

const previewLimit = 80

// Preview truncates message text for a notification body.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLimit {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLimit]) + "…"
}
