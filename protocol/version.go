package protocol

import (
	"strconv"
	"strings"
)

// mariaDBReplicationPrefix is prepended by MariaDB servers to their version
// string for backward compatibility with old replication clients that parse
// the version looking for a MySQL-shaped string.
const mariaDBReplicationPrefix = "5.5.5-"

// ServerVersion is the parsed form of the handshake packet's server-version
// field.
type ServerVersion struct {
	Raw                     string
	Major, Minor, Patch     int
	IsMariaDB               bool
}

// ParseServerVersion parses a raw handshake server-version string such as
// "5.5.5-10.5.1-MariaDB" or "8.0.33". The replication-compatibility prefix
// is stripped (and implies MariaDB); otherwise MariaDB is detected by the
// substring "MariaDB" anywhere in the raw string.
func ParseServerVersion(raw string) ServerVersion {
	v := ServerVersion{Raw: raw}

	rest := raw
	if strings.HasPrefix(raw, mariaDBReplicationPrefix) {
		v.IsMariaDB = true
		rest = raw[len(mariaDBReplicationPrefix):]
	} else if strings.Contains(raw, "MariaDB") {
		v.IsMariaDB = true
	}

	// The numeric prefix ends at the first byte that isn't a digit or '.'.
	end := 0
	for end < len(rest) && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	parts := strings.SplitN(rest[:end], ".", 3)
	if len(parts) > 0 {
		v.Major, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		v.Minor, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		v.Patch, _ = strconv.Atoi(parts[2])
	}
	return v
}

// SupportsReturning reports whether the server accepts
// `INSERT/UPDATE/DELETE ... RETURNING`: MariaDB servers at or above 10.5.1.
func (v ServerVersion) SupportsReturning() bool {
	if !v.IsMariaDB {
		return false
	}
	return v.atLeast(10, 5, 1)
}

func (v ServerVersion) atLeast(major, minor, patch int) bool {
	if v.Major != major {
		return v.Major > major
	}
	if v.Minor != minor {
		return v.Minor > minor
	}
	return v.Patch >= patch
}
