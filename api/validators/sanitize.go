package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims input, collapses runs of whitespace and drops control
// characters, then cuts it to maxLen runes. maxLen <= 0 means no limit.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))
	count := 0
	space := false
	for _, r := range strings.TrimSpace(input) {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if space && count > 0 {
			if maxLen > 0 && count+1 >= maxLen {
				break
			}
			b.WriteRune(' ')
			count++
		}
		space = false
		if maxLen > 0 && count >= maxLen {
			break
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}
