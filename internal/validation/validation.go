package validation

import (
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

func MaxMessageLength() int {
	maxStr := os.Getenv("MAX_MESSAGE_LENGTH")
	if maxStr == "" {
		return 4000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 4000
	}
	return max
}

// ExcerptLength is the character budget for notification body excerpts.
func ExcerptLength() int {
	maxStr := os.Getenv("NOTIFY_EXCERPT_LENGTH")
	if maxStr == "" {
		return 80
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 80
	}
	return max
}

func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}

// Excerpt truncates content to the notification character budget,
// appending an ellipsis when anything was cut. Truncation counts
// runes, not bytes, so multi-byte text is never split mid-character.
func Excerpt(content string) string {
	content = strings.TrimSpace(content)
	max := ExcerptLength()
	if utf8.RuneCountInString(content) <= max {
		return content
	}
	runes := []rune(content)
	return string(runes[:max]) + "…"
}
