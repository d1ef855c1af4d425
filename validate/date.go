package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tbxark/voiceform/types"
)

var (
	isoDateRE     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	numericDateRE = regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2,4})$`)
	ordinalRE     = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
)

var monthNames = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may":  5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sep": 9, "sept": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

const dateHint = "Try a format like 12/22/2004, 2004-12-22, or December 22, 2004."

func normalizeDate(raw string, _ types.FieldDefinition) Result {
	v := collapseSpace(raw)
	month, day, year, parsed := parseDateParts(v)
	if !parsed {
		return fail("Invalid date format. Try MM/DD/YYYY or YYYY-MM-DD.", dateHint)
	}
	return validateCalendar(month, day, year)
}

func parseDateParts(v string) (month, day, year int, parsed bool) {
	if m := isoDateRE.FindStringSubmatch(v); m != nil {
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
		return month, day, year, true
	}
	if m := numericDateRE.FindStringSubmatch(v); m != nil {
		month, _ = strconv.Atoi(m[1])
		day, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
		// Ambiguous numerics are read as MM/DD; an impossible month with a
		// plausible day means the caller spoke DD/MM.
		if month > 12 && day <= 12 {
			month, day = day, month
		}
		return month, day, resolveYear(year, len(m[3])), true
	}
	return parseNaturalDate(v)
}

// parseNaturalDate accepts "22nd December 2004" and "December 22nd, 2004"
// style inputs.
func parseNaturalDate(v string) (month, day, year int, parsed bool) {
	cleaned := ordinalRE.ReplaceAllString(v, "$1")
	cleaned = strings.ReplaceAll(cleaned, ",", " ")
	cleaned = strings.ReplaceAll(cleaned, " of ", " ")
	fields := strings.Fields(strings.ToLower(cleaned))
	if len(fields) != 3 {
		return 0, 0, 0, false
	}
	if m, isMonth := monthNames[fields[0]]; isMonth {
		// Month day year.
		d, dErr := strconv.Atoi(fields[1])
		y, yErr := strconv.Atoi(fields[2])
		if dErr != nil || yErr != nil {
			return 0, 0, 0, false
		}
		return m, d, resolveYear(y, len(fields[2])), true
	}
	if m, isMonth := monthNames[fields[1]]; isMonth {
		// Day month year.
		d, dErr := strconv.Atoi(fields[0])
		y, yErr := strconv.Atoi(fields[2])
		if dErr != nil || yErr != nil {
			return 0, 0, 0, false
		}
		return m, d, resolveYear(y, len(fields[2])), true
	}
	return 0, 0, 0, false
}

// resolveYear maps two-digit years to the nearest century: within ten years
// past the current year stays in the 2000s, everything else reads as 1900s.
func resolveYear(year, width int) int {
	if width > 2 {
		return year
	}
	if 2000+year <= time.Now().Year()+10 {
		return 2000 + year
	}
	return 1900 + year
}

func validateCalendar(month, day, year int) Result {
	maxYear := time.Now().Year() + 10
	if year < 1900 || year > maxYear {
		return fail(fmt.Sprintf("Year must be between 1900 and %d.", maxYear), dateHint)
	}
	if month < 1 || month > 12 {
		return fail("Month must be between 1 and 12.", dateHint)
	}
	if day < 1 || day > 31 {
		return fail("Day must be between 1 and 31.", dateHint)
	}
	if day > daysIn(month, year) {
		return fail(
			fmt.Sprintf("%s %d is not a valid calendar date.", time.Month(month), day),
			dateHint,
		)
	}
	return ok(fmt.Sprintf("%02d/%02d/%04d", month, day, year))
}

func daysIn(month, year int) int {
	switch month {
	case 4, 6, 9, 11:
		return 30
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	default:
		return 31
	}
}
