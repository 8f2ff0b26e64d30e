package qna

import "strings"

// Recognized vote emoji. Comparison is lenient: variation selectors and skin
// tone modifiers are stripped so visually equivalent variants all count.
const (
	UpvoteEmoji   = "\U0001F44D" // thumbs up
	DownvoteEmoji = "\U0001F44E" // thumbs down
)

func normalizeEmoji(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == 0xFE0E || r == 0xFE0F: // text/emoji variation selectors
		case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ClassifyVote reports whether key is a recognized vote emoji and, if so,
// whether it is an upvote.
func ClassifyVote(key string) (upvote, ok bool) {
	switch normalizeEmoji(key) {
	case UpvoteEmoji:
		return true, true
	case DownvoteEmoji:
		return false, true
	}
	return false, false
}
