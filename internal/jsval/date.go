package jsval

import (
	"math"
	"time"
)

// Date is a point in time with millisecond precision.
type Date struct {
	t     time.Time
	valid bool
}

// Now returns the current time as milliseconds since the epoch.
func Now() float64 {
	return float64(time.Now().UnixMilli())
}

// NewDate creates a Date for t.
func NewDate(t time.Time) *Date {
	return &Date{t: t.Truncate(time.Millisecond), valid: true}
}

// DateFromMillis creates a Date from milliseconds since the epoch. NaN and
// out of range values produce an invalid date.
func DateFromMillis(ms float64) *Date {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > 8.64e15 {
		return &Date{}
	}
	return &Date{t: time.UnixMilli(int64(ms)), valid: true}
}

func (d *Date) ClassName() string { return "Date" }

// Time returns the instant; the zero time for invalid dates.
func (d *Date) Time() time.Time { return d.t }

// GetTime returns milliseconds since the epoch, NaN for invalid dates.
func (d *Date) GetTime() float64 {
	if !d.valid {
		return math.NaN()
	}
	return float64(d.t.UnixMilli())
}

// TimezoneOffset returns UTC minus local time in minutes.
func (d *Date) TimezoneOffset() float64 {
	if !d.valid {
		return math.NaN()
	}
	_, offset := d.t.In(time.Local).Zone()
	return float64(-offset / 60)
}

func (d *Date) String() string {
	if !d.valid {
		return "Invalid Date"
	}
	return d.t.In(time.Local).Format("Mon Jan 02 2006 15:04:05 GMT-0700")
}

// ISOString formats the date like toISOString.
func (d *Date) ISOString() (string, error) {
	if !d.valid {
		return "", NewRangeError("Invalid time value")
	}
	return d.t.UTC().Format("2006-01-02T15:04:05.000Z"), nil
}

func (d *Date) GetProperty(key string) (any, bool) {
	switch key {
	case "getTime", "valueOf":
		return NewFunction(key, func(any, []any) (any, error) { return d.GetTime(), nil }), true
	case "getTimezoneOffset":
		return NewFunction(key, func(any, []any) (any, error) { return d.TimezoneOffset(), nil }), true
	case "toISOString":
		return NewFunction(key, func(any, []any) (any, error) {
			s, err := d.ISOString()
			if err != nil {
				return nil, err
			}
			return s, nil
		}), true
	}
	return nil, false
}
