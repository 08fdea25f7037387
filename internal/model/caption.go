package model

import "strings"

// Caption is the human-readable description of a fetched post, assembled
// from source-specific fields.
type Caption struct {
	Author  string `json:"author,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Text renders the caption as one field per line, skipping empty fields.
func (c Caption) Text() string {
	var b strings.Builder
	for _, line := range []string{c.Author, c.Title, c.Content, c.URL} {
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

// IsZero reports whether no field is set.
func (c Caption) IsZero() bool {
	return c == Caption{}
}
