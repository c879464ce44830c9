package recording

import (
	"fmt"
	"strings"
	"time"
)

// Characters stripped from caller-supplied labels before they are used in
// filesystem paths. Matches the upstream call service's sanitization rules.
const unsafeLabelChars = `|&;$%@"<>()+, `

// Work directory names must sort by creation time regardless of deployment
// region, so timestamps are always rendered in a fixed zone.
var nameZone = loadNameZone()

func loadNameZone() *time.Location {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}

// SanitizeLabel strips characters unsafe for filesystem paths from a label
func SanitizeLabel(label string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeLabelChars, r) {
			return -1
		}
		return r
	}, label)
}

// Timestamp renders t in the fixed naming zone as yyyyMMdd'T'HHmmss
func Timestamp(t time.Time) string {
	return t.In(nameZone).Format("20060102T150405")
}

// WorkDirName derives the session work directory name from the two
// participant labels and a timestamp
func WorkDirName(doctor, patient string, t time.Time) string {
	return fmt.Sprintf("recording_%s_%s_%s", SanitizeLabel(doctor), SanitizeLabel(patient), Timestamp(t))
}
