// cleaner.go - Removes tokenizer control tokens from decoded output

package ai

import (
	"regexp"
	"strings"
)

var specialTokenPattern = regexp.MustCompile(`<\|[^|<>]*\|>|</?s>|<unk>|<pad>`)

// CleanOutput strips special tokens and surrounding whitespace. The remaining text is returned as generated.
func CleanOutput(text string) string {
	return strings.TrimSpace(specialTokenPattern.ReplaceAllString(text, ""))
}
