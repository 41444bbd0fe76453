package relay

import (
	"html"
	"net/url"
	"strings"
	"time"
)

// PlayerLink returns the share link that opens streamURL in the web player, or ""
// when no player base is configured.
func PlayerLink(playerBase, streamURL string) string {
	if playerBase == "" || streamURL == "" {
		return ""
	}
	return strings.TrimRight(playerBase, "/") + "/?url=" + url.QueryEscape(streamURL)
}

// FormatMessage renders ev as a Telegram HTML message.
func FormatMessage(ev Event, playerBase string) string {
	var b strings.Builder
	b.WriteString("<b>Stream requested</b>\n")
	if ev.Type != "" {
		b.WriteString("<b>Type:</b> ")
		b.WriteString(html.EscapeString(ev.Type))
		b.WriteByte('\n')
	}
	b.WriteString("<b>URL:</b> <code>")
	b.WriteString(html.EscapeString(ev.URL))
	b.WriteString("</code>\n")
	if !ev.Timestamp.IsZero() {
		b.WriteString("<b>At:</b> ")
		b.WriteString(ev.Timestamp.UTC().Format(time.RFC3339))
		b.WriteByte('\n')
	}
	if ev.Source != "" {
		b.WriteString("<b>Via:</b> ")
		b.WriteString(html.EscapeString(ev.Source))
		b.WriteByte('\n')
	}
	if link := PlayerLink(playerBase, ev.URL); link != "" {
		b.WriteString(`<a href="`)
		b.WriteString(html.EscapeString(link))
		b.WriteString(`">Open in player</a>`)
	}
	return strings.TrimRight(b.String(), "\n")
}
