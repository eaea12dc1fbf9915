package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of booking dates.
const DateLayout = "2006-01-02"

// Accepted slot time layouts, tried in this order after normalisation.
var slotTimeLayouts = []string{
	"3:04 PM",
	"3:04PM",
	"3 PM",
	"3PM",
	"15:04",
	"15:04:05",
}

func normaliseSlotTime(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "A.M.", "AM")
	s = strings.ReplaceAll(s, "P.M.", "PM")
	s = strings.ReplaceAll(s, ".", ":")
	return strings.Join(strings.Fields(s), " ")
}

// ParseSlotClock turns a locale time string such as "9:30 AM" into hour and minute.
func ParseSlotClock(slotTime string) (hour, minute int, err error) {
	norm := normaliseSlotTime(slotTime)
	for _, layout := range slotTimeLayouts {
		t, perr := time.Parse(layout, norm)
		if perr == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("unrecognised slot time %q", slotTime)
}

// ParseSlotStart combines a booking date and slot time into an instant in loc.
// Malformed input is rejected rather than guessed.
func ParseSlotStart(date, slotTime string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised booking date %q", date)
	}
	hour, minute, err := ParseSlotClock(slotTime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}
