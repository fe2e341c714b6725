package report

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultPrefix starts every report file name.
	DefaultPrefix = "TKE_Inspeccion"
	draftName     = "Borrador"
)

// Filename returns "<prefix>_<project>.pdf". The project name is reduced to
// ASCII letters, digits, spaces, dots and dashes; an empty result falls back
// to "Borrador".
func Filename(prefix, project string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	name := sanitizeName(project)
	if name == "" {
		name = draftName
	}
	return prefix + "_" + name + ".pdf"
}

func sanitizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range ascii {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == ' ', r == '-', r == '.':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(strings.TrimSpace(b.String()), "._")
}
