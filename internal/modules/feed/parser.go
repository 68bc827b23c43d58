// Package feed parses the daily semicolon-delimited NAV feed.
//
// The feed interleaves free-text category headers with records of the form
//
//	code;isin_growth;isin_reinvest;name;price;DD-Mon-YYYY
//
// A header applies to every record that follows it until the next header.
package feed

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrNoFeedDate is returned when the feed has records but none carries a
// parseable date
var ErrNoFeedDate = errors.New("feed has records but no parseable date")

const minFields = 6

// Field positions within a record line
const (
	fieldCode  = 0
	fieldName  = 3
	fieldPrice = 4
	fieldDate  = 5
)

var months = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// Record is one parsed feed line. Date is the feed date, not the line's own
// date token.
type Record struct {
	Date       time.Time
	SchemeCode string
	SchemeName string
	Category   string
	Price      float64
}

// Stats counts what the parser saw
type Stats struct {
	Lines   int `json:"lines"`
	Headers int `json:"headers"`
	Records int `json:"records"`
	Dropped int `json:"dropped"`
}

// ParseResult is the outcome of one Parse call
type ParseResult struct {
	FeedDate time.Time
	Records  []Record
	Stats    Stats
}

// Parse converts raw feed text into records stamped with the feed date
func Parse(text string) (*ParseResult, error) {
	result := &ParseResult{}
	var category string
	var feedDate time.Time
	dated := false

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		result.Stats.Lines++

		if isColumnHeader(line) {
			continue
		}

		if !strings.Contains(line, ";") {
			category = line
			result.Stats.Headers++
			continue
		}

		parts := strings.Split(line, ";")
		if len(parts) < minFields {
			result.Stats.Dropped++
			continue
		}

		code := strings.TrimSpace(parts[fieldCode])
		name := strings.TrimSpace(parts[fieldName])
		price, err := strconv.ParseFloat(strings.TrimSpace(parts[fieldPrice]), 64)
		if code == "" || name == "" || err != nil {
			result.Stats.Dropped++
			continue
		}

		if !dated {
			if d, ok := ParseDate(strings.TrimSpace(parts[fieldDate])); ok {
				feedDate = d
				dated = true
			}
		}

		result.Records = append(result.Records, Record{
			SchemeCode: code,
			SchemeName: name,
			Category:   category,
			Price:      price,
		})
	}

	result.Stats.Records = len(result.Records)
	if len(result.Records) == 0 {
		return result, nil
	}
	if !dated {
		return nil, ErrNoFeedDate
	}

	result.FeedDate = feedDate
	for i := range result.Records {
		result.Records[i].Date = feedDate
	}
	return result, nil
}

// isColumnHeader matches the feed's column title line. A field must equal
// a column title exactly, so a scheme named "... Scheme Name ..." is still
// a record.
func isColumnHeader(line string) bool {
	if !strings.Contains(line, ";") {
		return false
	}
	for _, field := range strings.Split(line, ";") {
		switch strings.TrimSpace(field) {
		case "Scheme Code", "Scheme Name":
			return true
		}
	}
	return false
}

// ParseDate parses DD-Mon-YYYY into UTC midnight. Impossible calendar dates
// such as 31-Feb-2024 are rejected.
func ParseDate(s string) (time.Time, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, ok := months[parts[1]]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil || year < 1 {
		return time.Time{}, false
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow; a round trip detects it
	if t.Day() != day || t.Month() != month || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}
