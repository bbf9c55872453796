package extract

import (
	"path"
	"regexp"
	"strconv"
	"time"

	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
)

var (
	// Two dates, e.g. 19820101-20181231 or 19820101_20181231.
	datePairPattern  = regexp.MustCompile(`([0-9]{8})[_-]([0-9]{8})`)
	datePattern      = regexp.MustCompile(`[0-9]{8}`)
	yearRangePattern = regexp.MustCompile(`([0-9]{4})-([0-9]{4})`)
	// A year delimited on both sides by non-alphanumerics.
	yearPattern       = regexp.MustCompile(`[^a-zA-Z0-9]([0-9]{4})[^a-zA-Z0-9]`)
	resolutionPattern = regexp.MustCompile(`[^a-zA-Z0-9]P([0-9]{1,2})([YMD])[^a-zA-Z0-9]`)
	versionPattern    = regexp.MustCompile(`fv[0-9].[0-9]`)
)

// IntervalMonth makes a single-date file cover the rest of its month.
const IntervalMonth = "month"

// InferTimesFromFilename derives a temporal range from the date patterns in a
// file name. Patterns are tried in priority order: a pair of 8-digit dates, a
// single 8-digit date, a year range, a single year. ok is false when none
// matches.
//
// A date pair is used as-is. Otherwise the end is derived from the start:
// interval "month" gives the last day of the month, a year range ends at the
// last second of its second year, a P<n>[YMD] resolution in the name ends
// one second before start+n units, and anything else ends at 23:59:59 on
// the start day.
func InferTimesFromFilename(filename, interval string) (start, end string, ok bool) {
	name := path.Base(filename)

	var (
		startTime time.Time
		endYear   string
		err       error
	)

	switch {
	case datePairPattern.MatchString(name):
		m := datePairPattern.FindStringSubmatch(name)
		s, err1 := time.Parse("20060102", m[1])
		e, err2 := time.Parse("20060102", m[2])
		if err1 != nil || err2 != nil {
			return "", "", false
		}
		return s.Format(stac.TimestampLayout), e.Format(stac.TimestampLayout), true

	case datePattern.MatchString(name):
		startTime, err = time.Parse("20060102", datePattern.FindString(name))

	case yearRangePattern.MatchString(name):
		m := yearRangePattern.FindStringSubmatch(name)
		startTime, err = time.Parse("2006", m[1])
		endYear = m[2]

	case yearPattern.MatchString(name):
		startTime, err = time.Parse("2006", yearPattern.FindStringSubmatch(name)[1])

	default:
		return "", "", false
	}
	if err != nil {
		return "", "", false
	}

	start = startTime.Format(stac.TimestampLayout)

	switch {
	case interval == IntervalMonth:
		end = endOfMonth(startTime).Format(stac.TimestampLayout)

	case endYear != "":
		y, err := time.Parse("2006", endYear)
		if err != nil {
			return "", "", false
		}
		end = y.AddDate(1, 0, 0).Add(-time.Second).Format(stac.TimestampLayout)

	case resolutionPattern.MatchString(name):
		m := resolutionPattern.FindStringSubmatch(name)
		n, _ := strconv.Atoi(m[1])
		end = addResolution(startTime, n, m[2]).Add(-time.Second).Format(stac.TimestampLayout)

	default:
		end = startTime.Format("2006-01-02") + "T23:59:59Z"
	}

	return start, end, true
}

// ExtractVersion returns the "fvX.Y" product version embedded in a file
// name, or Unknown.
func ExtractVersion(filename string) string {
	if v := versionPattern.FindString(filename); v != "" {
		return v
	}
	return Unknown
}

// endOfMonth returns midnight on the last day of t's month.
func endOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1)
}

// addResolution adds n years, months or days, clamping month arithmetic to
// the end of the target month.
func addResolution(t time.Time, n int, unit string) time.Time {
	switch unit {
	case "Y":
		return addMonthsClamped(t, 12*n)
	case "M":
		return addMonthsClamped(t, n)
	default:
		return t.AddDate(0, 0, n)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	target := first.AddDate(0, months, 0)
	last := endOfMonth(target).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
