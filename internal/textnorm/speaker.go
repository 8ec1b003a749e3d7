package textnorm

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// nameDashRe matches the dash that separates a speaker name from the topic:
	// "-", "--", en or em dash, with optional surrounding spaces.
	nameDashRe = regexp.MustCompile(`\s*[-–—]{1,2}\s*`)

	// speakerLikeRe accepts candidates that start with a title or a capital letter.
	speakerLikeRe = regexp.MustCompile(`^(Deputy|Senator|Minister|Taoiseach|Tánaiste)?\s*[A-ZÁÉÍÓÚ]`)
)

// SpeakerFromFilename extracts the speaker name embedded in a downloaded file
// name. It understands names such as:
//
//	YTID_Speaker Name - Topic.wav
//	YTID1_YTID2_Speaker Name- Topic.wav
//	_YTID_Speaker Name – Topic.wav
//
// Underscore-separated parts are scanned right to left; the first part whose
// text before a dash looks like a name wins. ok is false when nothing matches.
func SpeakerFromFilename(filename string) (name string, ok bool) {
	n := FixMojibake(NFC(filename))
	stem := strings.TrimSuffix(n, filepath.Ext(n))
	parts := strings.Split(stem, "_")

	for i := len(parts) - 1; i >= 0; i-- {
		loc := nameDashRe.FindStringIndex(parts[i])
		if loc == nil {
			continue
		}
		candidate := CollapseSpace(parts[i][:loc[0]])
		if candidate == "" {
			continue
		}
		if speakerLikeRe.MatchString(candidate) {
			return candidate, true
		}
	}
	return "", false
}
