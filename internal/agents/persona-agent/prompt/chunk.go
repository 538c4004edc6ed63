package prompt

import "strings"

// Chunk trims text and splits it into pieces of at most limit runes.
// Splits ignore word boundaries.
func Chunk(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return []string{text}
	}
	out := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}
