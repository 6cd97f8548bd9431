package parsing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// YearOfBirth returns January 1 of year at midnight UTC. Years outside
// [min, max] are rejected.
func YearOfBirth(year, min, max int) (string, error) {
	if year < min || year > max {
		return "", RangeError{Field: "year_of_birth", Value: year, Min: min, Max: max}
	}
	return YearMonthDay(year, 1, 1)
}

// YearOfBirthString parses a raw registry cell. Spreadsheet exports sometimes
// carry integral floats ("2000.0"), which are accepted.
func YearOfBirthString(raw string, min, max int) (string, error) {
	raw = strings.TrimSpace(raw)
	year, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int(f)) {
			return "", FormatError{Field: "year_of_birth", Value: raw, Want: "an integer year"}
		}
		year = int(f)
	}
	return YearOfBirth(year, min, max)
}

// DateString converts a YYYY-MM-DD date into a timestamp. An empty input yields
// noDate instead of an error so that column preprocessing can fill gaps.
func DateString(raw, noDate string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return noDate, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return "", FormatError{Field: "date", Value: raw, Want: "YYYY-MM-DD"}
	}
	return YearMonthDay(t.Year(), int(t.Month()), t.Day())
}

// YearMonthDay formats a date as an ISO 8601 UTC midnight timestamp
// (YYYY-MM-DDT00:00:00.00Z). It only bounds month and day; it does not check
// that the day exists in the given month.
func YearMonthDay(year, month, day int) (string, error) {
	if month < 1 || month > 12 {
		return "", RangeError{Field: "month", Value: month, Min: 1, Max: 12}
	}
	if day < 1 || day > 31 {
		return "", RangeError{Field: "day", Value: day, Min: 1, Max: 31}
	}
	return fmt.Sprintf("%04d-%02d-%02dT00:00:00.00Z", year, month, day), nil
}
