package query

import (
	"strings"
	"unicode"
)

// Soundex digit classes. Vowels, y, h and w carry no digit; h and w also do
// not break a run of same-coded consonants, vowels do.
var soundexCodes = map[rune]byte{
	'b': '1', 'f': '1', 'p': '1', 'v': '1',
	'c': '2', 'g': '2', 'j': '2', 'k': '2', 'q': '2', 's': '2', 'x': '2', 'z': '2',
	'd': '3', 't': '3',
	'l': '4',
	'm': '5', 'n': '5',
	'r': '6',
}

// Skeleton reduces a phrase to its phonetic fingerprint: one soundex code
// per word, space-joined. Titles whose consonant structure survives a
// misspelling ("buter chiken" vs "Butter Chicken") produce the same
// skeleton, which is what the fuzzy match tier compares on.
func Skeleton(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})

	codes := make([]string, 0, len(words))
	for _, w := range words {
		if code := soundexWord(w); code != "" {
			codes = append(codes, code)
		}
	}
	return strings.Join(codes, " ")
}

func soundexWord(word string) string {
	var letters []rune
	for _, r := range word {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteRune(unicode.ToUpper(letters[0]))

	lastCode := soundexCodes[letters[0]]
	for _, r := range letters[1:] {
		code, ok := soundexCodes[r]
		if !ok {
			// h and w are transparent; vowels break the run.
			if r != 'h' && r != 'w' {
				lastCode = 0
			}
			continue
		}
		if code == lastCode {
			continue
		}
		b.WriteByte(code)
		lastCode = code
		if b.Len() == 4 {
			break
		}
	}

	code := b.String()
	for len(code) < 4 {
		code += "0"
	}
	return code
}
