// Package textnorm normalises free text for use as join keys and file names.
//
// Every join in the pipeline goes through Key or PlaceKey so speaker matching
// and constituency matching share the same semantics.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Unknown is the key assigned to names that normalise to nothing.
const Unknown = "unknown"

// honorifics are stripped from the front of speaker keys, already lower-cased
// and without diacritics. "tainaiste" covers a misspelling found in the sheets.
var honorifics = []string{"deputy", "senator", "minister", "taoiseach", "tanaiste", "tainaiste"}

var spaceRe = regexp.MustCompile(`\s+`)

// apostrophes maps typographic quotes to a plain apostrophe.
var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "`", "'")

// mojibakeRepairs lists the legacy codecs that most often mis-decode UTF-8 in
// the source sheets, together with the markers that betray each one.
var mojibakeRepairs = []struct {
	enc     *charmap.Charmap
	markers []string
}{
	{charmap.Macintosh, []string{"√", "‚Ä"}},
	{charmap.Windows1252, []string{"Ã", "Â"}},
}

// NFC returns s in Unicode normalisation form C.
func NFC(s string) string {
	return norm.NFC.String(s)
}

// CollapseSpace trims s and folds every whitespace run into one space.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// StripDiacritics removes combining marks, so "Bríd Ó Súilleabháin" becomes
// "Brid O Suilleabhain".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// FixMojibake repairs UTF-8 text that was decoded with a legacy single-byte
// codec (e.g. "Br√≠d" -> "Bríd"). Runes the codec cannot represent are kept
// as they are, so one stray character does not block the repair of the rest.
// Text without mojibake markers, or whose re-encoding is not valid UTF-8, is
// returned unchanged.
func FixMojibake(s string) string {
	for _, r := range mojibakeRepairs {
		if !containsAny(s, r.markers) {
			continue
		}
		raw := reencode(r.enc, s)
		if !utf8.ValidString(raw) || raw == s {
			continue
		}
		return raw
	}
	return s
}

func reencode(cm *charmap.Charmap, s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if c, ok := cm.EncodeRune(r); ok {
			b.WriteByte(c)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Key normalises a speaker name for matching: NFC, mojibake repair, plain
// apostrophes, no diacritics, lower case, collapsed whitespace and no leading
// honorifics. Empty input yields Unknown. Key is idempotent.
func Key(name string) string {
	n := basic(name)
	for stripped := true; stripped; {
		stripped = false
		for _, h := range honorifics {
			if rest, ok := strings.CutPrefix(n, h+" "); ok {
				n = strings.TrimSpace(rest)
				stripped = true
			}
		}
	}
	if n == "" {
		return Unknown
	}
	return n
}

// PlaceKey normalises a constituency or region name for matching. It applies
// the same folding as Key without honorific stripping, and maps empty input
// to the empty string so "no constituency" never matches anything.
func PlaceKey(name string) string {
	return basic(name)
}

// basic applies the folding shared by Key and PlaceKey until it reaches a
// fixed point. Each mojibake repair shortens the string, so the loop ends.
func basic(s string) string {
	for {
		next := fold(s)
		if next == s {
			return next
		}
		s = next
	}
}

func fold(s string) string {
	s = FixMojibake(NFC(strings.TrimSpace(s)))
	s = apostrophes.Replace(s)
	s = StripDiacritics(strings.ToLower(s))
	return CollapseSpace(s)
}

// Slug renders s as a lower-case ASCII file-name fragment of at most maxLen
// characters. Empty results become Unknown.
func Slug(s string, maxLen int) string {
	s = FixMojibake(NFC(strings.ReplaceAll(s, "\u00a0", " ")))
	out := slug.Make(s)
	if maxLen > 0 && len(out) > maxLen {
		out = strings.TrimRight(out[:maxLen], "-")
	}
	if out == "" {
		return Unknown
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
