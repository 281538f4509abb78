package prepare

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Serials below five digits (before 1927-05-18) are read as plain numbers,
// not dates, so a bare year such as "2024" stays absent.
const minExcelSerial = 10000

// Largest serial Excel can represent (9999-12-31).
const maxExcelSerial = 2958465

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006",
	"02-01-2006",
	"02/01/06",
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
}

// ParseLocaleFloat reads a number written with a decimal comma and stray
// text such as units ("12,5 Ω"). Anything that is not a number is absent.
func ParseLocaleFloat(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", ".")
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ParseDate accepts an Excel serial or one of the textual layouts seen in
// the workbooks. Day-first is assumed for slash dates.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < minExcelSerial || serial > maxExcelSerial {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseClock normalizes a time-of-day cell to "15:04:05". It accepts a day
// fraction, a clock string or a full timestamp.
func ParseClock(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < 0 {
			return "", false
		}
		frac := f - float64(int64(f))
		secs := int64(frac*86400 + 0.5)
		if secs >= 86400 {
			secs = 0
		}
		t := time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(secs) * time.Second)
		return t.Format(ClockFormat), true
	}

	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ClockFormat), true
		}
	}
	return "", false
}

// Output formats used when dates are written back to a sheet.
const (
	DateFormat  = "2006-01-02"
	ClockFormat = "15:04:05"
)
