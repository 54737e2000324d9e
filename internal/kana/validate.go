package kana

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrNotKatakana is returned when the normalised result contains
	// characters outside the katakana script.
	ErrNotKatakana = errors.New("kana: result is not katakana")

	// ErrSpelledOut is returned when the result only spells the word letter
	// by letter (helmet → エイチイーエルエムイーティー).
	ErrSpelledOut = errors.New("kana: result spells the word letter by letter")
)

var katakanaPattern = regexp.MustCompile(`^[\p{Katakana}ー]+$`)

// letterReadings lists the accepted katakana readings of each latin letter.
// The first entry is the canonical one used by [SpellOut].
var letterReadings = map[rune][]string{
	'a': {"エー", "エイ"},
	'b': {"ビー"},
	'c': {"シー"},
	'd': {"ディー", "デー"},
	'e': {"イー"},
	'f': {"エフ"},
	'g': {"ジー"},
	'h': {"エイチ", "エッチ"},
	'i': {"アイ"},
	'j': {"ジェー", "ジェイ"},
	'k': {"ケー", "ケイ"},
	'l': {"エル"},
	'm': {"エム"},
	'n': {"エヌ"},
	'o': {"オー"},
	'p': {"ピー"},
	'q': {"キュー"},
	'r': {"アール"},
	's': {"エス"},
	't': {"ティー"},
	'u': {"ユー"},
	'v': {"ブイ", "ヴィー"},
	'w': {"ダブリュー"},
	'x': {"エックス"},
	'y': {"ワイ"},
	'z': {"ゼット", "ズィー"},
}

// SpellOut returns the canonical letter-by-letter katakana reading of word.
// Characters without a reading are copied as-is.
func SpellOut(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if readings, ok := letterReadings[r]; ok {
			b.WriteString(readings[0])
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isSpelledOut reports whether s is some combination of the per-letter
// readings of word. A word with a character that has no reading cannot be
// spelled out. Offsets reachable after each letter are tracked as a set, so
// readings that share a prefix (エイ, エイチ) cost no backtracking.
func isSpelledOut(word, s string) bool {
	if word == "" {
		return false
	}
	reach := map[int]bool{0: true}
	for _, r := range strings.ToLower(word) {
		readings, ok := letterReadings[r]
		if !ok {
			return false
		}
		next := make(map[int]bool, len(reach))
		for off := range reach {
			for _, reading := range readings {
				if strings.HasPrefix(s[off:], reading) {
					next[off+len(reading)] = true
				}
			}
		}
		if len(next) == 0 {
			return false
		}
		reach = next
	}
	return reach[len(s)]
}

// Validator classifies raw backend output. The zero value is ready to use and
// safe for concurrent use.
type Validator struct{}

// Validate normalises raw and checks it against word. On success it returns
// the normalised pronunciation; otherwise it returns [ErrNotKatakana] or
// [ErrSpelledOut].
func (Validator) Validate(word, raw string) (string, error) {
	normalized := Normalize(raw)
	if !katakanaPattern.MatchString(normalized) {
		return "", ErrNotKatakana
	}
	if isSpelledOut(word, normalized) {
		return "", ErrSpelledOut
	}
	return normalized, nil
}
