package csvimport

import (
	"time"

	"homemoney/internal/core"
)

// Candidate date layouts, in preference order. ISO first, then US,
// then EU. When month and day are both 12 or less a file is ambiguous
// between US and EU; the earlier layout wins, so US is assumed unless
// some row forces day-first.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"1-2-2006",
	"2/1/2006",
	"2.1.2006",
	"2/1/06",
	"02 Jan 2006",
}

// detectDateLayout picks one layout for the whole file: the layout that
// parses the most of the sampled date fields, ties broken by the
// preference order above. Detecting per-file rather than per-row keeps
// a single ambiguous row from being misparsed against its siblings.
func detectDateLayout(samples []string) string {
	best := dateLayouts[0]
	bestCount := -1
	for _, layout := range dateLayouts {
		count := 0
		for _, s := range samples {
			if s == "" {
				continue
			}
			if _, err := time.Parse(layout, s); err == nil {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = layout, count
		}
	}
	return best
}

func parseDate(layout, s string) (core.Date, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return core.Date{}, err
	}
	// Strip any time-of-day and pin to UTC.
	return core.NewDate(t.Year(), int(t.Month()), t.Day()), nil
}
