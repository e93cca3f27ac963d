package library

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	facultyLoanDays = 60
	studentLoanDays = 30

	facultyDailyRate Amount = 50
	studentDailyRate Amount = 100

	secondsPerDay = 60 * 60 * 24
)

// Amount is a currency value in cents.
type Amount int64

func (a Amount) String() string {
	return fmt.Sprintf("$%d.%02d", a/100, a%100)
}

// MarshalText renders the amount the way the console prints it.
func (a Amount) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// LoanDays is the loan period for role.
func LoanDays(role Role) int {
	if role == RoleFaculty {
		return facultyLoanDays
	}
	return studentLoanDays
}

// DailyRate is the late fee charged per whole day overdue.
func DailyRate(role Role) Amount {
	if role == RoleFaculty {
		return facultyDailyRate
	}
	return studentDailyRate
}

// DueDate is now plus the loan period for role, in calendar days.
func DueDate(now time.Time, role Role) time.Time {
	return now.AddDate(0, 0, LoanDays(role))
}

// LateFee computes the fee owed on dueDate as of now.
//
// "N/A" and empty dates owe nothing. A date that does not parse as
// YYYY-MM-DD, or names a month or day outside the calendar, yields zero and
// an ErrDateParse the caller should surface as a warning. Days late are the
// elapsed seconds since local midnight of dueDate divided by 86400, so the
// count can be off by one around daylight-saving changes.
func LateFee(dueDate string, role Role, now time.Time) (Amount, error) {
	dueDate = strings.TrimSpace(dueDate)
	if dueDate == "" || dueDate == NoDate {
		return 0, nil
	}

	due, err := parseDueDate(dueDate, now.Location())
	if err != nil {
		return 0, err
	}

	elapsed := int64(now.Sub(due) / time.Second)
	if elapsed <= 0 {
		return 0, nil
	}
	days := elapsed / secondsPerDay
	if days <= 0 {
		return 0, nil
	}
	return Amount(days) * DailyRate(role), nil
}

func parseDueDate(s string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrDateParse, s)
	}
	var ymd [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrDateParse, s)
		}
		ymd[i] = n
	}
	year, month, day := ymd[0], ymd[1], ymd[2]
	if year < 1900 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: %q out of range", ErrDateParse, s)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %q out of range", ErrDateParse, s)
	}
	return t, nil
}
