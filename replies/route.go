package replies

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"concierge/nlp"
	"concierge/tools"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	originFromRe = regexp.MustCompile(`\bfrom ([a-z][a-z ]*)`)
	originSeRe   = regexp.MustCompile(`\b([a-z]{3,}) se\b`)
)

// words that end a place name inside "from X ..." phrases
var originStop = map[string]bool{
	"to": true, "till": true, "tak": true, "how": true, "what": true, "is": true, "it": true,
	"hai": true, "ka": true, "ki": true, "ke": true, "kitna": true, "kitni": true, "kitne": true,
	"distance": true, "route": true, "far": true, "by": true, "via": true, "and": true, "in": true,
	"the": true, "your": true, "you": true, "there": true, "here": true, "naran": true,
	"aap": true, "yahan": true, "wahan": true, "kahan": true, "mein": true, "hum": true,
}

// ExtractOrigin finds the place the customer is travelling from, e.g.
// "distance from lahore" or "islamabad se kitna door". Empty when unknown.
func ExtractOrigin(text string) string {
	n := nlp.Normalize(text)
	if m := originFromRe.FindStringSubmatch(n); m != nil {
		var words []string
		for _, w := range strings.Fields(m[1]) {
			if originStop[w] || len(words) == 3 {
				break
			}
			words = append(words, w)
		}
		if len(words) > 0 {
			return strings.Join(words, " ")
		}
	}
	if m := originSeRe.FindStringSubmatch(n); m != nil && !originStop[m[1]] {
		return m[1]
	}
	return ""
}

var modeLabels = map[tools.TravelMode]localized{
	tools.ModeDriving: {nlp.LangEnglish: "🚗 By car", nlp.LangRomanUrdu: "🚗 Gaari se", nlp.LangUrdu: "🚗 گاڑی سے"},
	tools.ModeWalking: {nlp.LangEnglish: "🚶 On foot", nlp.LangRomanUrdu: "🚶 Paidal", nlp.LangUrdu: "🚶 پیدل"},
	tools.ModeTransit: {nlp.LangEnglish: "🚌 Public transport", nlp.LangRomanUrdu: "🚌 Public transport", nlp.LangUrdu: "🚌 پبلک ٹرانسپورٹ"},
}

// FormatDuration renders a travel time in whole hours and minutes.
func FormatDuration(d time.Duration, lang nlp.Language) string {
	mins := int(d.Round(time.Minute).Minutes())
	h, m := mins/60, mins%60
	var hu, mu string
	switch lang {
	case nlp.LangUrdu:
		hu, mu = " گھنٹے", " منٹ"
	case nlp.LangRomanUrdu:
		hu, mu = " ghante", " minute"
	default:
		hu, mu = "h", "m"
	}
	switch {
	case h == 0:
		return fmt.Sprintf("%d%s", m, mu)
	case m == 0:
		return fmt.Sprintf("%d%s", h, hu)
	default:
		return fmt.Sprintf("%d%s %d%s", h, hu, m, mu)
	}
}

// placeLabel prefers the geocoder's own name for the place.
func placeLabel(origin string, geo *tools.GeocodeResult) string {
	if geo != nil {
		if name := strings.TrimSpace(strings.Split(geo.Formatted, ",")[0]); name != "" {
			return name
		}
	}
	return cases.Title(language.English).String(origin)
}

func formatRoute(origin, destination string, info *tools.RouteInfo, lang nlp.Language) string {
	var b strings.Builder
	switch lang {
	case nlp.LangUrdu:
		fmt.Fprintf(&b, "%s سے %s تک:\n", origin, destination)
	case nlp.LangRomanUrdu:
		fmt.Fprintf(&b, "%s se %s tak:\n", origin, destination)
	default:
		fmt.Fprintf(&b, "From %s to %s:\n", origin, destination)
	}
	for _, m := range info.Modes {
		dist := m.DistanceText
		if dist == "" {
			dist = fmt.Sprintf("%.0f km", float64(m.DistanceMeters)/1000)
		}
		fmt.Fprintf(&b, "• %s: %s, ~%s\n", modeLabels[m.Mode].in(lang), dist, FormatDuration(m.Duration, lang))
	}
	switch lang {
	case nlp.LangUrdu:
		b.WriteString("موسم اور سڑک کے حالات کے مطابق وقت بدل سکتا ہے۔")
	case nlp.LangRomanUrdu:
		b.WriteString("Mausam aur road ki halat ke mutabiq time badal sakta hai.")
	default:
		b.WriteString("Times can change with weather and road conditions.")
	}
	return b.String()
}
