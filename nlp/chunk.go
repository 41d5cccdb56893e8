package nlp

import (
	"strings"
	"unicode"
)

// SplitToChunks cuts text into pieces of at most limit characters (runes).
// Each cut lands on the last line break, sentence end, bullet or dash inside
// the window; without one the window is hard-cut at limit.
func SplitToChunks(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 {
		return []string{text}
	}

	rest := []rune(text)
	var out []string
	for len(rest) > limit {
		cut := breakPoint(rest[:limit])
		chunk := strings.TrimSpace(string(rest[:cut]))
		if chunk == "" {
			cut = limit
			chunk = strings.TrimSpace(string(rest[:cut]))
		}
		out = append(out, chunk)
		rest = []rune(strings.TrimLeftFunc(string(rest[cut:]), unicode.IsSpace))
	}
	if tail := strings.TrimSpace(string(rest)); tail != "" {
		out = append(out, tail)
	}
	return out
}

// breakPoint returns the exclusive end of the chunk inside w.
func breakPoint(w []rune) int {
	for i := len(w) - 1; i > 0; i-- {
		switch w[i] {
		case '\n', '•':
			return i
		case '.', '!', '?', '۔':
			if i == len(w)-1 || unicode.IsSpace(w[i+1]) {
				return i + 1
			}
		case '-', '–', '—':
			if unicode.IsSpace(w[i-1]) {
				return i
			}
		}
	}
	return len(w)
}
