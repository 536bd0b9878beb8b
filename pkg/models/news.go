package models

import "time"

// NewsItem is one recent article about a symbol.
type NewsItem struct {
	Title     string    `json:"title"             yaml:"title"`
	URL       string    `json:"url"               yaml:"url"`
	Source    string    `json:"source"            yaml:"source"` // host without "www."
	Body      string    `json:"content,omitempty" yaml:"content,omitempty"`
	Published time.Time `json:"published,omitempty" yaml:"published,omitempty"`
}

// Truncated returns a copy whose body is cut to at most n characters.
func (n NewsItem) Truncated(limit int) NewsItem {
	n.Body = TruncateRunes(n.Body, limit)
	return n
}

// TruncateRunes cuts s to at most limit runes.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
