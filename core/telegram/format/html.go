package format

import "html"

// HTML builders for Telegram's HTML parse mode. Only the tags Telegram
// accepts are exposed; all user-supplied text must pass through Escape
// before being embedded.

// Escape replaces HTML-special characters so arbitrary text is safe to embed.
func Escape(text string) string {
	return html.EscapeString(text)
}

// B wraps escaped text in bold tags.
func B(text string) string {
	return "<b>" + Escape(text) + "</b>"
}

// I wraps escaped text in italic tags.
func I(text string) string {
	return "<i>" + Escape(text) + "</i>"
}

// Code wraps escaped text in inline-code tags.
func Code(text string) string {
	return "<code>" + Escape(text) + "</code>"
}

// Pre wraps escaped text in a preformatted block.
func Pre(text string) string {
	return "<pre>" + Escape(text) + "</pre>"
}
