package orchestrate

import "time"

// VersionLayout formats generated migration versions. It is fixed width, so
// versions sort lexicographically in time order.
const VersionLayout = "20060102150405"

// AllocateVersion returns explicit verbatim, or now in UTC formatted with VersionLayout.
func AllocateVersion(explicit string, now time.Time) string {
	if explicit != "" {
		return explicit
	}
	return now.UTC().Format(VersionLayout)
}

// MigrationFolderName joins version and name. The name is not normalized.
func MigrationFolderName(version, name string) string {
	return version + "_" + name
}
