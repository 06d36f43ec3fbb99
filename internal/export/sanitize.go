package export

import (
	"strings"
	"unicode"
)

const maxFileNameLen = 100

func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// FileName builds a download name like "The_Flood.xml" from a project title.
func FileName(title, format string) string {
	name := strings.ReplaceAll(SanitizeName(title, maxFileNameLen), " ", "_")
	if name == "" {
		name = "project"
	}
	return name + "." + format
}
