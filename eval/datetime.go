package eval

import (
	"time"

	"github.com/kaptinlin/formlogic/jsonvalue"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02", "2006-01-02T15:04:05"}

func parseDate(v jsonvalue.Value) (time.Time, error) {
	if !v.IsString() {
		return time.Time{}, &TypeMismatchError{Op: "DATEDIF", Expected: "date string", Got: v.Kind().String()}
	}
	var lastErr error
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v.AsString()); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// today returns the local calendar date at ctx.Now shifted by the instance's
// timezone offset (minutes from UTC), per spec §4.2.
func today(ctx *Context) jsonvalue.Value {
	shifted := ctx.Now.UTC().Add(time.Duration(ctx.TZOffsetMinutes) * time.Minute)
	return jsonvalue.String(shifted.Format("2006-01-02"))
}

func now(ctx *Context) jsonvalue.Value {
	return jsonvalue.String(ctx.Now.UTC().Format(time.RFC3339))
}

// datedif implements DATEDIF(start, end, unit) with calendar-based
// (not fixed-days) semantics for unit codes Y, M, D, YM, YD, MD, per spec
// §4.2.
func datedif(start, end, unit jsonvalue.Value) (jsonvalue.Value, error) {
	s, err := parseDate(start)
	if err != nil {
		return jsonvalue.Value{}, err
	}
	e, err := parseDate(end)
	if err != nil {
		return jsonvalue.Value{}, err
	}
	if !unit.IsString() {
		return jsonvalue.Value{}, &TypeMismatchError{Op: "DATEDIF", Expected: "unit string", Got: unit.Kind().String()}
	}

	years, months, days := calendarDiff(s, e)

	switch unit.AsString() {
	case "Y":
		return jsonvalue.Int(int64(years)), nil
	case "M":
		return jsonvalue.Int(int64(years*12 + months)), nil
	case "D":
		return jsonvalue.Int(int64(e.Sub(s).Hours() / 24)), nil
	case "YM":
		return jsonvalue.Int(int64(months)), nil
	case "YD":
		anniversary := time.Date(e.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
		if anniversary.After(e) {
			anniversary = time.Date(e.Year()-1, s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
		}
		return jsonvalue.Int(int64(e.Sub(anniversary).Hours() / 24)), nil
	case "MD":
		return jsonvalue.Int(int64(days)), nil
	default:
		return jsonvalue.Value{}, &TypeMismatchError{Op: "DATEDIF", Expected: "Y|M|D|YM|YD|MD", Got: unit.AsString()}
	}
}

// calendarDiff computes the calendar-based (year, month, day) breakdown of
// e - s, matching how spreadsheet DATEDIF treats whole elapsed months/years
// rather than a fixed-days approximation.
func calendarDiff(s, e time.Time) (years, months, days int) {
	if e.Before(s) {
		s, e = e, s
	}
	years = e.Year() - s.Year()
	months = int(e.Month()) - int(s.Month())
	days = e.Day() - s.Day()

	if days < 0 {
		months--
		prevMonth := time.Date(e.Year(), e.Month(), 0, 0, 0, 0, 0, time.UTC)
		days += prevMonth.Day()
	}
	if months < 0 {
		years--
		months += 12
	}
	return years, months, days
}
