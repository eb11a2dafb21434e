package fsutil

import "strings"

// maxFilenameLen bounds SanitizeFilename's output.
const maxFilenameLen = 128

// SanitizeFilename turns an arbitrary label into a safe file name component.
// Anything other than ASCII letters, digits, '.', '_' and '-' becomes '_',
// runs of '_' collapse, and leading or trailing '.' and '_' are dropped.
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
