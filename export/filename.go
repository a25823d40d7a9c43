package export

import (
	"strings"
	"unicode"
)

// FallbackFilename is used when the title yields an empty base name.
const FallbackFilename = "export"

// Filename derives the download name from a title: every run of whitespace
// becomes a single underscore and the ".pdf" extension is appended.
// Leading and trailing runs are kept as underscores.
func Filename(title string) string {
	base := collapseWhitespace(title, "_")
	if base == "" {
		base = FallbackFilename
	}
	return base + "." + string(FormatPDF)
}

func collapseWhitespace(s, sep string) string {
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if isTitleSpace(r) {
			if !inRun {
				b.WriteString(sep)
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

// isTitleSpace matches the whitespace set of ECMAScript's \s, which differs
// from unicode.IsSpace on U+0085 and U+FEFF.
func isTitleSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\u2028', '\u2029', '\ufeff':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}
