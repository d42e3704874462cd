package language

import (
	"regexp"
	"strings"
)

type jurisdiction struct {
	name     string
	timezone string
	patterns []*regexp.Regexp
}

// Jurisdictions in tie-break order.
var jurisdictions = []jurisdiction{
	newJurisdiction("Serbia", "Europe/Belgrade", "serbia", "serbian law", "belgrade", "србија", "српско право", "republika srbija"),
	newJurisdiction("Russia", "Europe/Moscow", "russia", "russian federation", "moscow", "россия", "российское право", "российской федерации"),
	newJurisdiction("France", "Europe/Paris", "france", "french law", "paris", "droit français"),
	newJurisdiction("United States", "America/New_York", "united states", "u.s.", "usa", "american law", "new york", "california"),
	newJurisdiction("United Kingdom", "Europe/London", "united kingdom", "uk", "england", "wales", "english law"),
}

func newJurisdiction(name, tz string, phrases ...string) jurisdiction {
	j := jurisdiction{name: name, timezone: tz}
	for _, p := range phrases {
		j.patterns = append(j.patterns, regexp.MustCompile(`(?i)(?:^|[^\p{L}])`+regexp.QuoteMeta(p)+`(?:[^\p{L}]|$)`))
	}
	return j
}

// DetectJurisdiction returns the jurisdiction with the most distinct pattern
// hits, or "" when none match.
func DetectJurisdiction(text string) string {
	best, bestHits := "", 0
	for _, j := range jurisdictions {
		hits := 0
		for _, re := range j.patterns {
			if re.MatchString(text) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = j.name, hits
		}
	}
	return best
}

// EstimateTimezone maps a jurisdiction to a representative IANA zone.
func EstimateTimezone(name string) string {
	for _, j := range jurisdictions {
		if strings.EqualFold(j.name, name) {
			return j.timezone
		}
	}
	return ""
}
