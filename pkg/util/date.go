package util

import (
	"strings"
	"time"
)

var dateTpl = strings.NewReplacer(
	"YYYY", "2006",
	"YY", "06",
	"MM", "01",
	"DD", "02",
	"hh", "15",
	"mm", "04",
	"ss", "05",
)

// FormatDateTpl formats t using a template with YYYY, YY, MM, DD, hh, mm and
// ss placeholders. A zero time yields "".
//
//	FormatDateTpl(t, "YYYY-MM-DD hh:mm") // "2023-11-10 00:00"
func FormatDateTpl(t time.Time, tpl string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTpl.Replace(tpl))
}

// FormatClock renders a duration as H:MM:SS, or M:SS under an hour.
// Zero or negative durations render as "Unknown".
func FormatClock(d time.Duration) string {
	if d <= 0 {
		return "Unknown"
	}
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return strings.Join([]string{itoa(h), pad2(m), pad2(s)}, ":")
	}
	return itoa(m) + ":" + pad2(s)
}
