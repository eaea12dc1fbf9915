package utils

import (
	"testing"
	"time"
)

func TestParseSlotStart(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	cases := []struct {
		name     string
		date     string
		slot     string
		wantHour int
		wantMin  int
	}{
		{"morning with space", "2024-05-01", "9:30 AM", 9, 30},
		{"no space", "2024-05-01", "9:30AM", 9, 30},
		{"lower case", "2024-05-01", "2:15 pm", 14, 15},
		{"noon", "2024-05-01", "12:00 PM", 12, 0},
		{"midnight", "2024-05-01", "12:00 AM", 0, 0},
		{"hour only", "2024-05-01", "5 PM", 17, 0},
		{"dotted meridiem", "2024-05-01", "7:45 p.m.", 19, 45},
		{"24 hour", "2024-05-01", "18:05", 18, 5},
		{"padded", "2024-05-01", "  09:00   AM ", 9, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseSlotStart(tc.date, tc.slot, loc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Hour() != tc.wantHour || got.Minute() != tc.wantMin {
				t.Fatalf("got %02d:%02d, want %02d:%02d", got.Hour(), got.Minute(), tc.wantHour, tc.wantMin)
			}
			if got.Location() != loc || got.Day() != 1 || got.Month() != time.May {
				t.Fatalf("wrong date or zone: %v", got)
			}
		})
	}
}

func TestParseSlotStartRejectsMalformed(t *testing.T) {
	cases := []struct{ date, slot string }{
		{"2024-05-01", "nine thirty"},
		{"2024-05-01", "25:00"},
		{"2024-05-01", "13:00 PM"},
		{"01/05/2024", "9:30 AM"},
		{"", "9:30 AM"},
	}
	for _, tc := range cases {
		if _, err := ParseSlotStart(tc.date, tc.slot, time.UTC); err == nil {
			t.Errorf("ParseSlotStart(%q, %q) succeeded, want error", tc.date, tc.slot)
		}
	}
}
