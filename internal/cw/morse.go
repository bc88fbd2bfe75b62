// Package cw implements the Morse symbol table, element timing and the
// live-keying decode state machine.
package cw

import (
	"strings"
	"time"
	"unicode"
)

// Morse code timing ratios (ITU standard), in dit units.
const (
	// DahDitRatio is the ratio of dah duration to dit duration (ITU: 3:1)
	DahDitRatio = 3
	// IntraCharSpaceRatio is the space between elements within a character (ITU: 1:1)
	IntraCharSpaceRatio = 1
	// InterCharSpaceRatio is the space between characters (ITU: 3:1)
	InterCharSpaceRatio = 3
	// WordSpaceRatio is the space between words (ITU: 7:1)
	WordSpaceRatio = 7
)

const (
	// MaxCodeLen is the longest code in the table; a longer buffer is garbled input.
	MaxCodeLen = 5
	// MaxTextLen is the capacity of the decoded text accumulator.
	MaxTextLen = 63
)

// Symbol is a single Morse element.
type Symbol byte

const (
	Dit Symbol = '.'
	Dah Symbol = '-'
)

// Entry is one row of the symbol table.
type Entry struct {
	Char rune
	Code string
}

// Table is the fixed alphanumeric symbol table, in lookup order (A–Z, 1–9, 0).
var Table = [36]Entry{
	{'A', ".-"}, {'B', "-..."}, {'C', "-.-."}, {'D', "-.."}, {'E', "."}, {'F', "..-."},
	{'G', "--."}, {'H', "...."}, {'I', ".."}, {'J', ".---"}, {'K', "-.-"}, {'L', ".-.."},
	{'M', "--"}, {'N', "-."}, {'O', "---"}, {'P', ".--."}, {'Q', "--.-"}, {'R', ".-."},
	{'S', "..."}, {'T', "-"}, {'U', "..-"}, {'V', "...-"}, {'W', ".--"}, {'X', "-..-"},
	{'Y', "-.--"}, {'Z', "--.."}, {'1', ".----"}, {'2', "..---"}, {'3', "...--"}, {'4', "....-"},
	{'5', "....."}, {'6', "-...."}, {'7', "--..."}, {'8', "---.."}, {'9', "----."}, {'0', "-----"},
}

// Alphabet is the lookup order presented to users; the trailing space is a word gap.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890 "

var (
	byChar = make(map[rune]string, len(Table))
	byCode = make(map[string]rune, len(Table))
)

func init() {
	for _, e := range Table {
		byChar[e.Char] = e.Code
		byCode[e.Code] = e.Char
	}
}

// Lookup returns the code for r. Lowercase letters are folded to uppercase.
func Lookup(r rune) (string, bool) {
	code, ok := byChar[unicode.ToUpper(r)]
	return code, ok
}

// Decode returns the character for a dot/dash code.
func Decode(code string) (rune, bool) {
	r, ok := byCode[code]
	return r, ok
}

// Encode renders text as space separated codes, with " / " between words.
// Characters outside the table are skipped.
func Encode(text string) string {
	var words []string
	for _, w := range strings.Fields(text) {
		var codes []string
		for _, r := range w {
			if code, ok := Lookup(r); ok {
				codes = append(codes, code)
			}
		}
		if len(codes) > 0 {
			words = append(words, strings.Join(codes, " "))
		}
	}
	return strings.Join(words, " / ")
}

// Timing derives every element and gap duration from one dit unit.
type Timing struct {
	Dit time.Duration
}

func (t Timing) Dah() time.Duration       { return DahDitRatio * t.Dit }
func (t Timing) IntraGap() time.Duration  { return IntraCharSpaceRatio * t.Dit }
func (t Timing) LetterGap() time.Duration { return InterCharSpaceRatio * t.Dit }
func (t Timing) WordGap() time.Duration   { return WordSpaceRatio * t.Dit }

// Element returns the tone duration for s.
func (t Timing) Element(s Symbol) time.Duration {
	if s == Dah {
		return t.Dah()
	}
	return t.Dit
}

// Classify maps a tone duration to a symbol. Tones longer than a dah are
// noise and report ok == false.
func Classify(d, dit time.Duration) (s Symbol, ok bool) {
	switch {
	case d <= dit:
		return Dit, true
	case d <= DahDitRatio*dit:
		return Dah, true
	default:
		return 0, false
	}
}
