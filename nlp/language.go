package nlp

import (
	"regexp"
	"strings"
	"unicode"
)

type Language string

const (
	LangEnglish   Language = "en"
	LangUrdu      Language = "ur"
	LangRomanUrdu Language = "roman-ur"
)

// Languages is the closed set the model is allowed to answer with.
var Languages = []Language{LangEnglish, LangUrdu, LangRomanUrdu}

// ParseLanguage maps a wire value to a Language, defaulting to English.
func ParseLanguage(s string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LangUrdu:
		return LangUrdu
	case LangRomanUrdu:
		return LangRomanUrdu
	default:
		return LangEnglish
	}
}

var romanUrduTokens = []string{
	"kiraya", "kiraye", "qeemat", "qimat", "btao", "batao", "bataen", "bataein",
	"kitna", "kitni", "kitne", "kya", "kahan", "kidhar", "kaise", "kaisay",
	"hai", "hain", "mujhe", "humein", "hamein", "chahiye", "chahye", "raat",
	"shukriya", "bhai", "janab", "karna", "krna", "milega", "milegi", "wala",
	"wali", "sakte", "skte", "abhi", "kal",
}

var romanUrduRe = regexp.MustCompile(`\b(?:` + strings.Join(romanUrduTokens, "|") + `)\b`)

// DetectLanguage picks the reply language for a message. Urdu script wins over
// Roman Urdu tokens, which win over the English default.
func DetectLanguage(text string) Language {
	if HasUrduScript(text) {
		return LangUrdu
	}
	if romanUrduRe.MatchString(Normalize(text)) {
		return LangRomanUrdu
	}
	return LangEnglish
}

// HasUrduScript reports whether text contains Arabic-script code points.
func HasUrduScript(text string) bool {
	for _, r := range text {
		if isUrduRune(r) {
			return true
		}
	}
	return false
}

func isUrduRune(r rune) bool {
	switch {
	case r >= 0x0600 && r <= 0x06FF,
		r >= 0x0750 && r <= 0x077F,
		r >= 0xFB50 && r <= 0xFDFF,
		r >= 0xFE70 && r <= 0xFEFF:
		return unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r)
	}
	return false
}
