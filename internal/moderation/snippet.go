package moderation

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/ProtheticGlitch/Enterra/internal/normalize"
)

// MaxSnippet is the longest audit snippet in runes.
const MaxSnippet = 180

const ellipsis = "..."

// Snippet prepares text for an audit entry: markup removed, whitespace
// collapsed and trimmed, capped at MaxSnippet runes.
func Snippet(text string) string {
	plain := collapse(stripTags(text))

	runes := []rune(plain)
	if len(runes) > MaxSnippet {
		return string(runes[:MaxSnippet-len(ellipsis)]) + ellipsis
	}
	return plain
}

// stripTags keeps only the text tokens of s. Entities are decoded.
func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return html.UnescapeString(s)
	}

	var buf strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				// Tokenizer gave up; keep what we have plus the raw remainder
				buf.Write(z.Raw())
			}
			return buf.String()
		case html.TextToken:
			buf.Write(z.Text())
		}
	}
}

func collapse(s string) string {
	var buf strings.Builder
	space := false
	for _, r := range s {
		if normalize.IsSpace(r) {
			space = true
			continue
		}
		if space && buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		space = false
		buf.WriteRune(r)
	}
	return buf.String()
}
