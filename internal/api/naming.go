package api

import "strings"

const (
	masterSeparator = "-"
	memberSeparator = "--"
)

// LogicalName strips the isolation prefix from a lower-cased instance name.
//
// Forked instances are named "<masterShortHash>-<name>" for the group master
// and "<masterShortHash>--<name>" for every other member. Short hashes never
// contain a dash, so the first separator occurrence ends the prefix. Names
// without the expected separator are returned unchanged.
func LogicalName(lowerName string, isolated, master bool) string {
	if !isolated {
		return lowerName
	}
	sep := memberSeparator
	if master {
		sep = masterSeparator
	}
	if idx := strings.Index(lowerName, sep); idx >= 0 {
		return lowerName[idx+len(sep):]
	}
	return lowerName
}

// ForkedLowerName builds the lower-cased name of a fork of lowerName inside the
// isolation group whose master has masterShortHash.
func ForkedLowerName(masterShortHash, lowerName string, isMaster bool) string {
	sep := memberSeparator
	if isMaster {
		sep = masterSeparator
	}
	return strings.ToLower(masterShortHash) + sep + strings.ToLower(lowerName)
}
