package pipeline

import (
	"regexp"
	"strings"
)

// A transform rewrites a resolved field value. ok=false means the value is
// absent from the mapped record, not an error.
type transformFunc func(value string) (string, bool)

var transforms = map[string]transformFunc{
	"date_dmy_slash": transformDateDMYSlash,
	"bool_s_n":       transformBoolSN,
}

var reDateDMY = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)

// transformDateDMYSlash rewrites DD/MM/YYYY to YYYY-MM-DD. Anything else,
// already-ISO strings included, yields absent.
func transformDateDMYSlash(value string) (string, bool) {
	m := reDateDMY.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return "", false
	}
	return m[3] + "-" + m[2] + "-" + m[1], true
}

// transformBoolSN maps the feed's S flag to true and everything else,
// empty included, to false.
func transformBoolSN(value string) (string, bool) {
	if strings.EqualFold(strings.TrimSpace(value), "s") {
		return "true", true
	}
	return "false", true
}
