// Package academic derives semester numbers and semester date windows from a
// batch name encoding an academic-year range ("2023-2027", optionally
// followed by a section such as "2023-2027 A").
//
// The academic year turns over on July 1: January–June dates fall in the
// even semester of the academic year in progress, July–December dates open
// the odd semester of the next one. Results are computed fresh on every call
// so "today" is always the actual call-time date; callers needing a fixed
// clock inject one.
package academic

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// MinSemester and MaxSemester bound a standard four-year programme.
	MinSemester = 1
	MaxSemester = 8

	academicYearBoundary = time.July
)

// Calculator computes calendar-derived batch fields. The zero value is not
// usable; construct with NewCalculator.
type Calculator struct {
	now    func() time.Time
	logger *zap.Logger
}

// Option configures the calculator.
type Option func(*Calculator)

// WithClock replaces the wall clock, letting tests pin "today".
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCalculator constructs a calculator. A nil logger is replaced with a nop.
func NewCalculator(logger *zap.Logger, opts ...Option) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Calculator{now: time.Now, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// StartYear extracts the batch start year from names like "2023-2027" or
// "2023-2027 A". The second return value is false when the name is malformed.
func StartYear(batchName string) (int, bool) {
	name := strings.TrimSpace(batchName)
	if i := strings.IndexByte(name, ' '); i >= 0 {
		name = name[:i]
	}
	first, _, found := strings.Cut(name, "-")
	if !found {
		return 0, false
	}
	year, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || year < 1000 || year > 9999 {
		return 0, false
	}
	return year, true
}

// CurrentSemester maps the batch start year and a reference date to a
// semester in [1,8]. A malformed batch name resolves to semester 1; this is
// a data-quality fallback, not an error, but it is logged for visibility.
func (c *Calculator) CurrentSemester(batchName string, asOf time.Time) int {
	startYear, ok := StartYear(batchName)
	if !ok {
		c.logger.Warn("batch name unparsable, defaulting semester",
			zap.String("batch", batchName))
		return MinSemester
	}

	offset := asOf.Year() - startYear
	var semester int
	if asOf.Month() < academicYearBoundary {
		semester = offset * 2
	} else {
		semester = offset*2 + 1
	}
	return clampSemester(semester)
}

// CurrentSemesterNow is CurrentSemester evaluated at the calculator's clock.
func (c *Calculator) CurrentSemesterNow(batchName string) int {
	return c.CurrentSemester(batchName, c.now())
}

// SemesterDateRange returns the date window of the given semester: odd
// semesters span July 1–December 31, even semesters January 1–June 30 of the
// following calendar year. A malformed batch name falls back to the current
// calendar year's January 1–December 31 window rather than failing, since
// these fields feed display-only dashboards.
func (c *Calculator) SemesterDateRange(batchName string, semester int) (time.Time, time.Time) {
	semester = clampSemester(semester)

	startYear, ok := StartYear(batchName)
	if !ok {
		c.logger.Warn("batch name unparsable, defaulting semester window",
			zap.String("batch", batchName))
		year := c.now().Year()
		return date(year, time.January, 1), date(year, time.December, 31)
	}

	yearOffset := (semester - 1) / 2
	if semester%2 == 1 {
		year := startYear + yearOffset
		return date(year, time.July, 1), date(year, time.December, 31)
	}
	year := startYear + yearOffset + 1
	return date(year, time.January, 1), date(year, time.June, 30)
}

func clampSemester(semester int) int {
	if semester < MinSemester {
		return MinSemester
	}
	if semester > MaxSemester {
		return MaxSemester
	}
	return semester
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
