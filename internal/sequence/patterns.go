package sequence

import (
	"strings"
)

// YouthMarkers are case-insensitive substrings that mark a club name as a
// youth, reserve or academy squad. Order matters only for readability; any
// single hit excludes the record.
var YouthMarkers = []string{
	"u15", "u16", "u17", "u18", "u19", "u20", "u21", "u22", "u23",
	"sub-15", "sub-17", "sub-19", "sub-20", "sub-21",
	"u-18", "u-19", "u-21", "u-23",
	"under 18", "under 19", "under 21", "under 23",
	"youth", "reserve", "reserves", "yth.", "yth", "you.",
	"academy", "acad.",
	"b team", "b-team", "ii team", "ii-team",
	"jgd.", "jong", "jrs.",
	"juvenil", "juvenile",
	"without club",
}

// ReserveSuffixes are case-insensitive suffixes denoting second/third squads
// (roman-numeral and letter conventions such as "Barcelona B" or "Bayern II").
var ReserveSuffixes = []string{
	" ii", " iii", " b", " c", " d",
}

// IsYouthOrReserve reports whether a club name denotes a non-first-team squad
func IsYouthOrReserve(club string) bool {
	if club == "" {
		return false
	}
	clean := strings.ToLower(strings.TrimSpace(club))

	for _, marker := range YouthMarkers {
		if strings.Contains(clean, marker) {
			return true
		}
	}
	for _, suffix := range ReserveSuffixes {
		if strings.HasSuffix(clean, suffix) {
			return true
		}
	}
	return false
}
