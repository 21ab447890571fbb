package extract

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	garbledRatio    = 0.30
	minCleanedRunes = 50
)

var (
	horizontalSpace = regexp.MustCompile(`[^\S\n]+`)
	spaceAroundLF   = regexp.MustCompile(` *\n *`)
	manyNewlines    = regexp.MustCompile(`\n{3,}`)
	splitDot        = regexp.MustCompile(`(\S) \. (\S)`)
)

// allowed reports whether r survives cleaning: ASCII word characters,
// whitespace, basic punctuation and the Cyrillic block.
func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return true
	case r == '.', r == ',', r == '!', r == '?', r == '@':
		return true
	case r >= 0x0400 && r <= 0x04FF:
		return true
	}
	return unicode.IsSpace(r)
}

// Normalize composes text to NFC, drops runes outside the whitelist,
// collapses whitespace and heals "x . y" artifacts into "x.y".
func Normalize(raw string) string {
	composed := norm.NFC.String(raw)
	var b strings.Builder
	b.Grow(len(composed))
	for _, r := range composed {
		if !allowed(r) {
			continue
		}
		if r == '\r' {
			r = '\n'
		}
		b.WriteRune(r)
	}
	s := horizontalSpace.ReplaceAllString(b.String(), " ")
	s = spaceAroundLF.ReplaceAllString(s, "\n")
	s = manyNewlines.ReplaceAllString(s, "\n\n")
	for {
		healed := splitDot.ReplaceAllString(s, "$1.$2")
		if healed == s {
			break
		}
		s = healed
	}
	return strings.TrimSpace(s)
}

// IsGarbled reports whether primary extraction looks unreliable: too many
// characters outside the whitelist, or too little text left after cleaning.
func IsGarbled(raw string) bool {
	return disallowedRatio(raw) > garbledRatio || len([]rune(Normalize(raw))) < minCleanedRunes
}

func disallowedRatio(raw string) float64 {
	composed := norm.NFC.String(raw)
	var total, bad int
	for _, r := range composed {
		total++
		if !allowed(r) {
			bad++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(bad) / float64(total)
}
