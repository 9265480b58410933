package artifacts

import (
	"strings"
	"unicode"

	"fetcharr/internal/domain/consts"
)

// allowedPunct is the punctuation kept in filenames.
const allowedPunct = "-_.() "

// CleanFilename keeps only ASCII letters, digits, spaces and "-_.()".
//
// Leading dots and surrounding spaces are trimmed so the result never
// names a hidden file or a parent directory.
func CleanFilename(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(allowedPunct, r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(b.String()), "."))
}

// OutputFilename builds "<clean title>.<ext>" for a format.
func OutputFilename(title string, format consts.Format) string {
	name := CleanFilename(title)
	if name == "" {
		name = consts.FallbackTitle
	}
	return name + "." + format.Ext()
}
