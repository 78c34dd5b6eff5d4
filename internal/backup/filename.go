package backup

import (
	"fmt"
	"regexp"
	"time"
)

// Kind is the two backup shapes spec §4.J's scheduler produces.
type Kind string

const (
	KindSQLOnly Kind = "LOGS_REDIS_SQL"
	KindFull    Kind = "LOGS_PHOTOS_REDIS_SQL"
)

const filenameLayout = "2006-01-02_15.04.05"

var filenamePattern = regexp.MustCompile(
	`^mealpedant_(\d{4}-\d{2}-\d{2})_(\d{2}\.\d{2}\.\d{2})_(LOGS_REDIS_SQL|LOGS_PHOTOS_REDIS_SQL)_([0-9a-f]{8})\.tar\.age$`,
)

// filename builds the `mealpedant_<date>_<time>_<kind>_<8-hex>.tar.age`
// name spec §8 property P9 requires to round-trip through parseFilename.
func filename(ts time.Time, kind Kind, hexSuffix string) string {
	return fmt.Sprintf("mealpedant_%s_%s_%s.tar.age", ts.UTC().Format(filenameLayout), kind, hexSuffix)
}

// parsedFilename is every component filename/parseFilename round-trip.
type parsedFilename struct {
	Timestamp time.Time
	Kind      Kind
	Suffix    string
}

// parseFilename reverses filename, rejecting anything that doesn't match
// the fixed shape exactly (wrong length, bad hex, unknown kind).
func parseFilename(name string) (parsedFilename, bool) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return parsedFilename{}, false
	}
	ts, err := time.ParseInLocation(filenameLayout, m[1]+"_"+m[2], time.UTC)
	if err != nil {
		return parsedFilename{}, false
	}
	return parsedFilename{Timestamp: ts, Kind: Kind(m[3]), Suffix: m[4]}, true
}
