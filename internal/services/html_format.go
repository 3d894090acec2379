package services

import (
	"fmt"
	"html"
)

func FormatBold(text string) string {
	return fmt.Sprintf("<b>%s</b>", html.EscapeString(text))
}

func FormatItalic(text string) string {
	return fmt.Sprintf("<i>%s</i>", html.EscapeString(text))
}

// FormatCode renders inline monospace text, used for identifiers.
func FormatCode(text string) string {
	return fmt.Sprintf("<code>%s</code>", html.EscapeString(text))
}

func FormatLink(text, url string) string {
	return fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(url), html.EscapeString(text))
}

// EscapeHTML escapes free text placed outside any tag.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}
