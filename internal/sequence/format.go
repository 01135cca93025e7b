package sequence

import (
	"fmt"
	"strings"
	"time"
)

// FinancialYear returns the label of the financial year containing date.
// With an April start, 2024-04-01 through 2025-03-31 is "2024-25". A January
// start makes the financial year the calendar year, labelled "2024".
func FinancialYear(date time.Time, startMonth time.Month) string {
	if startMonth < time.January || startMonth > time.December {
		startMonth = time.April
	}
	year := date.Year()
	if startMonth == time.January {
		return fmt.Sprintf("%d", year)
	}
	if date.Month() < startMonth {
		year--
	}
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}

// Render substitutes {PREFIX}, {FY} and {SEQ} in template. {SEQ} is
// zero-padded to width; a sequence wider than width is printed in full.
func Render(template, prefix, fy string, seq int64, width int) string {
	if template == "" {
		template = "{PREFIX}-{FY}-{SEQ}"
	}
	if width < 1 {
		width = 1
	}
	r := strings.NewReplacer(
		"{PREFIX}", prefix,
		"{FY}", fy,
		"{SEQ}", fmt.Sprintf("%0*d", width, seq),
	)
	return r.Replace(template)
}
