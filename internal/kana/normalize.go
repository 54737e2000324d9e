// Package kana normalises and validates katakana pronunciations returned by
// an inference backend.
//
// Normalisation folds the script variants a model tends to mix into one
// canonical full-width katakana form:
//
//   - half-width katakana (ｶﾀｶﾅ) are widened, and half-width voicing marks are
//     composed onto their base character (ｶﾞ → ガ);
//   - hiragana are shifted into the katakana block (かな → カナ);
//   - dash-like characters used as a long-vowel mark become ー.
//
// A [Validator] then accepts a result only when the entire normalised string
// is katakana and it is not a letter-by-letter spelling of the input word.
package kana

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

const (
	hiraganaFirst = 'ぁ'
	hiraganaLast  = 'ゖ'
	hiraganaShift = 0x60

	prolongedSoundMark = 'ー'
)

// longVowelReplacer maps dash variants to the prolonged sound mark. The
// half-width ｰ is covered by widening before this runs.
var longVowelReplacer = strings.NewReplacer(
	"―", "ー", // U+2015 horizontal bar
	"－", "ー", // U+FF0D full-width hyphen-minus
	"‐", "ー", // U+2010 hyphen
	"—", "ー", // U+2014 em dash
)

// voicingReplacer turns the spacing voicing marks that widening produces for
// ﾞ and ﾟ into their combining forms so NFC can compose them.
var voicingReplacer = strings.NewReplacer(
	"\u309b", "\u3099",
	"\u309c", "\u309a",
)

// Normalize converts s into canonical full-width katakana. Characters that
// have no katakana equivalent are left untouched so that validation can
// reject them.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = width.Widen.String(s)
	s = voicingReplacer.Replace(s)
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if r >= hiraganaFirst && r <= hiraganaLast {
			return r + hiraganaShift
		}
		return r
	}, s)
	return longVowelReplacer.Replace(s)
}
