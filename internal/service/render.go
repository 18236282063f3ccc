package service

import (
	"regexp"
	"strings"
	"time"
)

var (
	boldRe   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	emRe     = regexp.MustCompile(`\*(.*?)\*`)
	codeRe   = regexp.MustCompile("`(.*?)`")
	scriptRe = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	iframeRe = regexp.MustCompile(`(?is)<iframe\b.*?</iframe>`)
	objectRe = regexp.MustCompile(`(?is)<object\b.*?</object>`)
	embedRe  = regexp.MustCompile(`(?is)<embed\b.*?</embed>`)
	jsURIRe  = regexp.MustCompile(`(?i)javascript:`)
	onAttrRe = regexp.MustCompile(`(?i)on\w+\s*=`)
)

// sanitizeContent strips the obviously dangerous HTML constructs from raw
// comment content before rendering.
func sanitizeContent(content string) string {
	content = scriptRe.ReplaceAllString(content, "")
	content = iframeRe.ReplaceAllString(content, "")
	content = objectRe.ReplaceAllString(content, "")
	content = embedRe.ReplaceAllString(content, "")
	content = jsURIRe.ReplaceAllString(content, "")
	content = onAttrRe.ReplaceAllString(content, "")
	return content
}

// renderContent applies the light inline markup comments support:
// **bold**, *emphasis*, `code`, and newlines.
func renderContent(content string) string {
	out := sanitizeContent(content)
	out = boldRe.ReplaceAllString(out, "<strong>$1</strong>")
	out = emRe.ReplaceAllString(out, "<em>$1</em>")
	out = codeRe.ReplaceAllString(out, "<code>$1</code>")
	out = strings.ReplaceAll(out, "\n", "<br>")
	return out
}

// formatDisplayTime renders a creation timestamp shifted by the viewer's
// timezone offset (minutes), matching the widget's display format.
func formatDisplayTime(t time.Time, timezoneOffsetMinutes int) string {
	adjusted := t.UTC().Add(time.Duration(timezoneOffsetMinutes) * time.Minute)
	return adjusted.Format("2006-01-02 15:04")
}
