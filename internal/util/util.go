package util

import (
	"regexp"
	"strings"
)

// passwordPattern matches the password span of an embedded credential: the
// text between ":" and "@" that contains neither. Matches every occurrence
// so multi-host URIs are masked completely.
var passwordPattern = regexp.MustCompile(`:([^@:]+)@`)

// MaskPassword replaces the password component of any credential embedded in
// uri with a fixed mask. Everything outside the ":password@" span is
// preserved byte for byte.
func MaskPassword(uri string) string {
	return passwordPattern.ReplaceAllString(uri, ":****@")
}

// RewriteHost replaces every occurrence of oldHost in uri with newHost and
// reports whether anything changed. Used to keep a migrated upstream from
// federating back to itself.
func RewriteHost(uri, oldHost, newHost string) (string, bool) {
	if oldHost == "" || !strings.Contains(uri, oldHost) {
		return uri, false
	}
	return strings.ReplaceAll(uri, oldHost, newHost), true
}
