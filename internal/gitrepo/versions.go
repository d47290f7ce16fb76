package gitrepo

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

var versionDirRe = regexp.MustCompile(`^v(\d+)\.(\d+)\.x$`)

// parseVersionDirName parses a directory name like "v2.5.x" into its
// (major, minor) pair.
func parseVersionDirName(name string) (major, minor int, ok bool) {
	m := versionDirRe.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}

// LatestVersionDir scans the subdirectories of parent and returns the
// path of the one with the greatest v<major>.<minor>.x version.
// Directories not matching the pattern are ignored; when nothing
// matches (or parent cannot be read) it returns "".
func LatestVersionDir(parent string) string {
	entries, err := os.ReadDir(parent)
	if err != nil {
		return ""
	}

	var latestPath string
	var latestMajor, latestMinor int
	found := false

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		major, minor, ok := parseVersionDirName(entry.Name())
		if !ok {
			continue
		}
		if !found || major > latestMajor || (major == latestMajor && minor > latestMinor) {
			found = true
			latestMajor, latestMinor = major, minor
			latestPath = filepath.Join(parent, entry.Name())
		}
	}

	return latestPath
}
