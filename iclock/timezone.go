package iclock

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// TimestampLayout is the canonical local timestamp shape produced by
// ParseAttlogBody.
const TimestampLayout = "2006-01-02 15:04:05"

// Terminals occasionally report ISO-style timestamps with a 'T'
// separator; accepted as a fallback.
var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
}

// LoadZone resolves an IANA timezone name, falling back to the
// configured default zone and finally to UTC. Terminals report naked
// wall-clock time, so a wrong-but-known zone beats failing the request.
func LoadZone(name string, fallback string) *time.Location {
	if name != "" {
		loc, err := time.LoadLocation(name)
		if err == nil {
			return loc
		}
		log.Printf("iclock: unknown timezone %q, using fallback %q", name, fallback)
	}
	if fallback != "" {
		if loc, err := time.LoadLocation(fallback); err == nil {
			return loc
		}
	}
	return time.UTC
}

// LocalToUTC converts a device-local wall-clock timestamp to the UTC
// instant it denotes in loc, applying whatever offset (including DST)
// was in effect in that zone at that wall-clock moment.
func LocalToUTC(local string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(local)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid local timestamp %q", local)
}
