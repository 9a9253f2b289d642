package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeUnixIsUTC(t *testing.T) {
	ts := time.Date(2020, 3, 16, 23, 30, 0, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC, got %v", got.Location())
	}
	day, _ := ParseDate(strconv.FormatInt(ts, 10))
	if FormatDate(day) != "2020-03-16" {
		t.Fatalf("unexpected day %s", FormatDate(day))
	}
}

func TestParseDateTruncatesClock(t *testing.T) {
	got, ok := ParseDate("2020-03-16T15:30:00-04:00")
	if !ok {
		t.Fatalf("expected ok")
	}
	want := time.Date(2020, 3, 16, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestAddYearsUsesWholeDays(t *testing.T) {
	start := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	got := AddYears(start, 2)
	if DaysBetween(start, got) != 730 {
		t.Fatalf("expected 730 days, got %d", DaysBetween(start, got))
	}
	// 2020 is a leap year, so 730 days lands one day early
	if FormatDate(got) != "2022-01-01" {
		t.Fatalf("unexpected date %s", FormatDate(got))
	}
}

func TestParseIntList(t *testing.T) {
	got := ParseIntList(" 2, 5,,x,10")
	if len(got) != 3 || got[0] != 2 || got[1] != 5 || got[2] != 10 {
		t.Fatalf("unexpected %v", got)
	}
}
