// Package format builds Telegram HTML message fragments.
package format

import "strings"

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeHTML escapes the characters Telegram's HTML parse mode treats as markup.
func EscapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}

// Heading renders a bold underlined title.
func Heading(title string) string {
	return "<b><u>" + EscapeHTML(title) + "</u></b>"
}

// Field renders a "label: value" line with the value escaped.
func Field(label, value string) string {
	return label + ": " + EscapeHTML(value)
}

// Lines joins non-empty parts with newlines.
func Lines(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}
