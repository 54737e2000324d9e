package kana_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/kanaset/internal/kana"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already katakana", "ヘルメット", "ヘルメット"},
		{"hiragana", "へるめっと", "ヘルメット"},
		{"half-width", "ﾍﾙﾒｯﾄ", "ヘルメット"},
		{"half-width voiced", "ｶﾞｰﾄﾞ", "ガード"},
		{"half-width semi-voiced", "ﾊﾟｰﾃｨｰ", "パーティー"},
		{"horizontal bar", "コンピュ―タ―", "コンピューター"},
		{"full-width hyphen", "ス－パ－", "スーパー"},
		{"trims whitespace", "  ワード\n", "ワード"},
		{"mixed scripts", "わーど", "ワード"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := kana.Normalize(tc.in); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSpellOut(t *testing.T) {
	t.Parallel()
	if got, want := kana.SpellOut("helmet"), "エイチイーエルエムイーティー"; got != want {
		t.Errorf("SpellOut(helmet) = %q, want %q", got, want)
	}
	if got, want := kana.SpellOut("AB"), "エービー"; got != want {
		t.Errorf("SpellOut(AB) = %q, want %q", got, want)
	}
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()
	var v kana.Validator

	tests := []struct {
		name    string
		word    string
		raw     string
		want    string
		wantErr error
	}{
		{"valid", "helmet", "ヘルメット", "ヘルメット", nil},
		{"valid after normalisation", "word", "わーど", "ワード", nil},
		{"latin letters", "helmet", "helmet", "", kana.ErrNotKatakana},
		{"kanji", "tree", "木", "", kana.ErrNotKatakana},
		{"empty", "tree", "", "", kana.ErrNotKatakana},
		{"embedded space", "ice cream", "アイス クリーム", "", kana.ErrNotKatakana},
		{"canonical spelling", "helmet", kana.SpellOut("helmet"), "", kana.ErrSpelledOut},
		{"variant spelling", "ha", "エッチエイ", "", kana.ErrSpelledOut},
		{"spelling of another word is fine", "ab", "シーディー", "シーディー", nil},
		{"acronym-like word read as word", "nasa", "ナサ", "ナサ", nil},
		{"readings sharing a prefix", "ah", "エイエイチ", "", kana.ErrSpelledOut},
		{"spelling of a prefix only", "abc", "エービー", "エービー", nil},
		{"spelling with trailing text", "ab", "エービーン", "エービーン", nil},
		{"word with digits", "b2b", "ビーツービー", "ビーツービー", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := v.Validate(tc.word, tc.raw)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate(%q, %q) error = %v, want %v", tc.word, tc.raw, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("Validate(%q, %q) = %q, want %q", tc.word, tc.raw, got, tc.want)
			}
		})
	}
}

func BenchmarkValidate(b *testing.B) {
	var v kana.Validator
	for b.Loop() {
		_, _ = v.Validate("helmet", "ヘルメット")
	}
}
