package timeparse

import (
	"errors"
	"testing"
	"time"
)

func at(hour, min, sec int) time.Time {
	return time.Date(2026, time.July, 31, hour, min, sec, 0, time.UTC) // a Friday
}

func TestParseNow(t *testing.T) {
	now := at(18, 30, 45)
	got, err := Parse("now", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != now.Unix() {
		t.Fatalf("got %d, want %d", got, now.Unix())
	}
}

func TestParseTodayPadsFromCurrentClock(t *testing.T) {
	now := at(18, 30, 45)
	got, err := Parse("today 18", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2026, time.July, 31, 18, 30, 45, 0, time.UTC).Unix()
	if got != want {
		t.Fatalf("got %d, want %d (padded minute/second from now)", got, want)
	}
}

func TestParseTodayFullTimeOverridesAll(t *testing.T) {
	now := at(18, 30, 45)
	got, err := Parse("today at 6:05:09", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2026, time.July, 31, 6, 5, 9, 0, time.UTC).Unix()
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestParseTomorrow(t *testing.T) {
	now := at(9, 0, 0)
	got, err := Parse("tomorrow at 9", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2026, time.August, 1, 9, 0, 0, 0, time.UTC).Unix()
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestParseYesterday(t *testing.T) {
	now := at(9, 0, 0)
	got, err := Parse("yesterday at 9", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2026, time.July, 30, 9, 0, 0, 0, time.UTC).Unix()
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestParseNextWeekdaySkipsToday(t *testing.T) {
	// 2026-07-31 is a Friday; "next friday" must not mean today.
	now := at(12, 0, 0)
	got, err := Parse("next friday at 12", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2026, time.August, 7, 12, 0, 0, 0, time.UTC).Unix()
	if got != want {
		t.Fatalf("got %d, want %d (one week ahead, not today)", got, want)
	}
}

func TestParseNextWeekdayCloserDay(t *testing.T) {
	now := at(12, 0, 0) // Friday
	got, err := Parse("next monday at 8", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2026, time.August, 3, 8, 0, 0, 0, time.UTC).Unix()
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestParseNextDayIsTomorrow(t *testing.T) {
	now := at(9, 0, 0)
	got, err := Parse("next day at 9", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2026, time.August, 1, 9, 0, 0, 0, time.UTC).Unix()
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestParseWeekdayAliasSpellings(t *testing.T) {
	now := at(12, 0, 0)
	for _, alias := range []string{"tues", "tuesday"} {
		got, err := Parse("next "+alias+" at 12", now)
		if err != nil {
			t.Fatalf("Parse(%q): %v", alias, err)
		}
		want := time.Date(2026, time.August, 4, 12, 0, 0, 0, time.UTC).Unix()
		if got != want {
			t.Fatalf("alias %q: got %d, want %d", alias, got, want)
		}
	}
}

func TestParseDurationSuffixAddition(t *testing.T) {
	now := at(12, 0, 0)
	got, err := Parse("now + 1 hour", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := now.Add(time.Hour).Unix()
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestParseDurationSuffixSubtraction(t *testing.T) {
	now := at(12, 0, 0)
	got, err := Parse("now - 30 minutes", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := now.Add(-30 * time.Minute).Unix()
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestParseDurationSuffixComposed(t *testing.T) {
	now := at(12, 0, 0)
	got, err := Parse("today at 9 + 2 hours + 15 minutes", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2026, time.July, 31, 9, 0, 0, 0, time.UTC).Add(2*time.Hour + 15*time.Minute).Unix()
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestParseUnknownUnitIsAmbiguous(t *testing.T) {
	_, err := Parse("now + 1 fortnight", at(12, 0, 0))
	if !errors.Is(err, ErrAmbiguousInput) {
		t.Fatalf("got err %v, want ErrAmbiguousInput", err)
	}
}

func TestParseGarbageIsAmbiguous(t *testing.T) {
	_, err := Parse("whenever works for you", at(12, 0, 0))
	if !errors.Is(err, ErrAmbiguousInput) {
		t.Fatalf("got err %v, want ErrAmbiguousInput", err)
	}
}

func TestParseEmptyIsAmbiguous(t *testing.T) {
	_, err := Parse("   ", at(12, 0, 0))
	if !errors.Is(err, ErrAmbiguousInput) {
		t.Fatalf("got err %v, want ErrAmbiguousInput", err)
	}
}

func TestParseUnknownWeekdayIsAmbiguous(t *testing.T) {
	_, err := Parse("next blursday at 9", at(12, 0, 0))
	if !errors.Is(err, ErrAmbiguousInput) {
		t.Fatalf("got err %v, want ErrAmbiguousInput", err)
	}
}

func TestParseIsCaseInsensitive(t *testing.T) {
	now := at(9, 0, 0)
	got, err := Parse("TOMORROW AT 9", now)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2026, time.August, 1, 9, 0, 0, 0, time.UTC).Unix()
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}
