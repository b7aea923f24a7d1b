package calc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period strings are "YYYY" (annual), "YYYY-Qn" (quarterly), or a
// synthesized "TTM-<period>". Lexicographic order equals chronological
// order within one frequency, which the store's sorting relies on.

// parsePeriod splits a period into year and quarter (0 for annual)
func parsePeriod(period string) (year, quarter int, err error) {
	p := strings.TrimPrefix(period, "TTM-")

	if idx := strings.Index(p, "-Q"); idx >= 0 {
		year, err = strconv.Atoi(p[:idx])
		if err != nil {
			return 0, 0, fmt.Errorf("bad period %q", period)
		}
		quarter, err = strconv.Atoi(p[idx+2:])
		if err != nil || quarter < 1 || quarter > 4 {
			return 0, 0, fmt.Errorf("bad period %q", period)
		}
		return year, quarter, nil
	}

	year, err = strconv.Atoi(p)
	if err != nil {
		return 0, 0, fmt.Errorf("bad period %q", period)
	}
	return year, 0, nil
}

// prevYearPeriod returns the same period one year earlier
func prevYearPeriod(period string) (string, error) {
	year, quarter, err := parsePeriod(period)
	if err != nil {
		return "", err
	}
	if quarter == 0 {
		return strconv.Itoa(year - 1), nil
	}
	return fmt.Sprintf("%d-Q%d", year-1, quarter), nil
}

// prevQuarterPeriod returns the adjacent earlier quarter
func prevQuarterPeriod(period string) (string, error) {
	year, quarter, err := parsePeriod(period)
	if err != nil {
		return "", err
	}
	if quarter == 0 {
		return "", fmt.Errorf("period %q is not quarterly", period)
	}
	if quarter == 1 {
		return fmt.Sprintf("%d-Q4", year-1), nil
	}
	return fmt.Sprintf("%d-Q%d", year, quarter-1), nil
}

// periodEnd approximates the calendar end of a period. Annual periods
// end Dec 31; quarters end on the last day of their third month.
func periodEnd(period string) (time.Time, error) {
	year, quarter, err := parsePeriod(period)
	if err != nil {
		return time.Time{}, err
	}
	month := time.December
	if quarter > 0 {
		month = time.Month(quarter * 3)
	}
	// day 0 of the next month = last day of month
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC), nil
}
