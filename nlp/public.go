package nlp

import (
	"regexp"
	"strings"
)

var (
	urlRe = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+|\bwa\.me/\S+`)

	// Anything that reads like an amount of money. Digits are folded to
	// ASCII first. Currency markers may be glued to the amount (PKR30000).
	priceLineRe = regexp.MustCompile(`(?i)(` +
		`(?:^|[^a-z])(?:rs\.?|pkr|inr|usd|aed)\s*\d|(?:^|[^a-z])pkr(?:[^a-z]|$)|[₨$€£]|` +
		`\brupees?\b|\brup(?:a|ai|ee)(?:y|ye|ey|iye)?\b|\bpaisay?\b|` +
		`\d\s*/-|\b\d{1,3}(?:,\d{2,3})+\b|\d{4,}|\p{Nd}{4,}|\d+(?:\.\d+)?\s*k\b|\d+\s*%|` +
		`\bh[aeu]?[zj]aa?r\b|\b(?:lakh|lakhs|lac|lacs|crore)\b|` +
		`\bper\s+(?:night|person|head|couple|banda|bande|raat)\b|\bdiscount|\bprice\s*:|\btotal\s*:|` +
		`روپے|روپیہ|روپیے|قیمت|ہزار|لاکھ|کروڑ|فی\s+رات|فی\s+کس|رعایت)`)
)

// IsPriceLine reports whether a single line carries a price or price-like
// number. Links are ignored so phone numbers inside wa.me URLs survive.
func IsPriceLine(line string) bool {
	line = foldDigits(urlRe.ReplaceAllString(line, ""))
	return priceLineRe.MatchString(line)
}

// digitZeros are the zero code points of the non-ASCII digit sets customers
// type in: Arabic-Indic, Eastern Arabic (Urdu), Devanagari, Bengali, fullwidth.
var digitZeros = []rune{'\u0660', '\u06F0', '\u0966', '\u09E6', '\uFF10'}

// foldDigits maps those digits to ASCII.
func foldDigits(s string) string {
	return strings.Map(func(r rune) rune {
		for _, zero := range digitZeros {
			if r >= zero && r <= zero+9 {
				return '0' + (r - zero)
			}
		}
		return r
	}, s)
}

// StripPricesFromPublic drops every price line from text meant for a public
// surface. It is total and idempotent.
func StripPricesFromPublic(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		if IsPriceLine(line) {
			continue
		}
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
