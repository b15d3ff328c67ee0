package tui

import (
	"html"

	"habit-gallery/internal/shared/util"
)

// display turns an HTML-escaped view field back into terminal text.
func display(s string) string {
	return util.StripControl(html.UnescapeString(s))
}

// plain cleans text that was never escaped, such as server error messages.
func plain(s string) string {
	return util.StripControl(s)
}
