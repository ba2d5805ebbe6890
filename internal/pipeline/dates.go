package pipeline

import (
	"time"

	"targetradar/internal/service"
)

const isoDate = "2006-01-02"

// approxAge estimates a person's age from a year/month of birth. The month
// defaults to mid-year when the registry omits it, giving a deterministic
// same-year tie-break. Unknown years yield nil.
func approxAge(dob *service.PartialDate, today time.Time) *int {
	if dob == nil || dob.Year == 0 {
		return nil
	}
	month := dob.Month
	if month == 0 {
		month = 6
	}
	age := today.Year() - dob.Year
	if int(today.Month()) < month {
		age--
	}
	return &age
}

// yearsSince computes whole years elapsed since an ISO date string. An
// unparseable date yields nil.
func yearsSince(dateStr string, today time.Time) *int {
	d, err := time.Parse(isoDate, dateStr)
	if err != nil {
		return nil
	}
	years := today.Year() - d.Year()
	if int(today.Month()) < int(d.Month()) ||
		(int(today.Month()) == int(d.Month()) && today.Day() < d.Day()) {
		years--
	}
	return &years
}

// monthsBetween computes whole months between two dates, order-insensitive.
func monthsBetween(a, b time.Time) int {
	if a.After(b) {
		a, b = b, a
	}
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	return months
}

// monthsSince parses an ISO date string and reports whole months from it to
// today. Unparseable dates yield nil.
func monthsSince(dateStr string, today time.Time) *int {
	d, err := time.Parse(isoDate, dateStr)
	if err != nil {
		return nil
	}
	m := monthsBetween(d, today)
	return &m
}
