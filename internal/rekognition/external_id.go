package rekognition

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxExternalImageIDLen is the longest ExternalImageId Rekognition accepts.
const maxExternalImageIDLen = 255

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// ExternalImageID maps a patient ID onto the [a-zA-Z0-9_.\-:]+ alphabet Rekognition allows.
// Diacritics are stripped and other disallowed characters become underscores.
// Records are linked by face ID, so the tag only needs to stay recognizable.
func ExternalImageID(patientID string) string {
	s := RemoveDiacritics(patientID)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '.', r == '-', r == ':':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if len(out) > maxExternalImageIDLen {
		out = out[:maxExternalImageIDLen]
	}
	return out
}
