// Package timeparse converts the human-readable time phrases accepted by
// hatc into an absolute epoch-seconds instant, using host-local time.
//
// The recognized shapes are documented in SPEC_FULL.md §6.1:
//
//	now
//	today|tomorrow|yesterday [at] HH[:MM[:SS]]
//	next <weekday>|day [at] HH[:MM[:SS]]
//	<phrase> +|- N {h|hr|hour|hours}|{m|min|minute|minutes}|{s|sec|second|seconds}
//
// Missing HH:MM:SS components are padded from the *current* wall-clock
// field, not zero — e.g. "today 18" parsed at 18:30:45 means 18:30:45, not
// 18:00:00. This is surprising but preserved deliberately for compatibility
// with the original implementation; see SPEC_FULL.md §9.
package timeparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrAmbiguousInput is returned when a phrase matches none of the
// recognized shapes.
var ErrAmbiguousInput = errors.New("ambiguous input")

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednes": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "satur": time.Saturday, "saturday": time.Saturday,
}

// Parse converts a human time phrase into epoch seconds, evaluated against
// now (host-local wall clock). now is an explicit parameter rather than an
// implicit time.Now() call so that the padding rule and "next weekday"
// arithmetic are exercisable deterministically in tests.
func Parse(phrase string, now time.Time) (int64, error) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return 0, fmt.Errorf("timeparse: %w: %q", ErrAmbiguousInput, phrase)
	}

	if base, deltaTokens, ok := splitAddSub(phrase); ok {
		baseEpoch, err := Parse(base, now)
		if err != nil {
			return 0, err
		}
		delta, err := sumDuration(deltaTokens)
		if err != nil {
			return 0, err
		}
		return baseEpoch + delta, nil
	}

	fields := strings.Fields(phrase)

	switch {
	case phrase == "now":
		return now.Unix(), nil
	case len(fields) > 0 && fields[0] == "next":
		return parseNext(fields, now)
	case strings.HasPrefix(phrase, "yesterday"):
		return parseRelativeDay(phrase, now, -1)
	case strings.HasPrefix(phrase, "today"):
		return parseRelativeDay(phrase, now, 0)
	case strings.HasPrefix(phrase, "tomorrow"):
		return parseRelativeDay(phrase, now, 1)
	default:
		return 0, fmt.Errorf("timeparse: %w: %q", ErrAmbiguousInput, phrase)
	}
}

// splitAddSub looks for a top-level " + " or " - " separator (the duration
// suffix composition rule in SPEC_FULL.md §6.1) and, if found, returns the
// base phrase and the trailing tokens to sum as a duration.
func splitAddSub(phrase string) (base string, tail []string, ok bool) {
	fields := strings.Fields(phrase)
	for i, f := range fields {
		if f == "+" || f == "-" {
			before := strings.Join(fields[:i], " ")
			after := fields[i:] // keep the sign token at the front
			return before, after, true
		}
	}
	return "", nil, false
}

// sumDuration evaluates a "+|- N unit [+|- N unit ...]" tail into a signed
// seconds delta.
func sumDuration(tokens []string) (int64, error) {
	var total int64
	sign := int64(1)
	i := 0
	for i < len(tokens) {
		switch tokens[i] {
		case "+":
			sign = 1
			i++
			continue
		case "-":
			sign = -1
			i++
			continue
		}
		if i+1 >= len(tokens) {
			return 0, fmt.Errorf("timeparse: %w: dangling duration term %q", ErrAmbiguousInput, tokens[i])
		}
		n, err := strconv.ParseInt(tokens[i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("timeparse: %w: %q", ErrAmbiguousInput, tokens[i])
		}
		unit := tokens[i+1]
		secs, err := unitSeconds(unit)
		if err != nil {
			return 0, err
		}
		total += sign * n * secs
		i += 2
	}
	return total, nil
}

func unitSeconds(unit string) (int64, error) {
	switch unit {
	case "h", "hr", "hour", "hours":
		return 3600, nil
	case "m", "min", "minute", "minutes":
		return 60, nil
	case "s", "sec", "second", "seconds":
		return 1, nil
	default:
		return 0, fmt.Errorf("timeparse: %w: unknown duration unit %q", ErrAmbiguousInput, unit)
	}
}

// parseRelativeDay handles "today|tomorrow|yesterday [at] HH[:MM[:SS]]".
// dayOffset is -1/0/+1 for yesterday/today/tomorrow.
func parseRelativeDay(phrase string, now time.Time, dayOffset int) (int64, error) {
	fields := strings.Fields(phrase)
	tail := fields[1:]
	if len(tail) > 0 && tail[0] == "at" {
		tail = tail[1:]
	}
	h, m, s, err := padTimeOfDay(tail, now)
	if err != nil {
		return 0, err
	}
	day := now.AddDate(0, 0, dayOffset)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, now.Location()).Unix(), nil
}

// parseNext handles "next <weekday>" and "next day" (alias for tomorrow).
func parseNext(fields []string, now time.Time) (int64, error) {
	if len(fields) < 2 {
		return 0, fmt.Errorf("timeparse: %w: %q", ErrAmbiguousInput, strings.Join(fields, " "))
	}
	what := fields[1]
	tail := fields[2:]
	if len(tail) > 0 && tail[0] == "at" {
		tail = tail[1:]
	}

	if what == "day" {
		h, m, s, err := padTimeOfDay(tail, now)
		if err != nil {
			return 0, err
		}
		day := now.AddDate(0, 0, 1)
		return time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, now.Location()).Unix(), nil
	}

	weekday, ok := weekdayNames[what]
	if !ok {
		return 0, fmt.Errorf("timeparse: %w: unknown weekday %q", ErrAmbiguousInput, what)
	}

	h, m, s, err := padTimeOfDay(tail, now)
	if err != nil {
		return 0, err
	}

	daysAhead := (int(weekday) - int(now.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	day := now.AddDate(0, 0, daysAhead)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, now.Location()).Unix(), nil
}

// padTimeOfDay splits the remaining tokens on ':' and pads any missing
// hour/minute/second component from now's corresponding field, per the
// normalization rule in SPEC_FULL.md §6.1.
func padTimeOfDay(tail []string, now time.Time) (hour, min, sec int, err error) {
	joined := strings.Join(tail, " ")
	parts := splitHMS(joined)

	vals := [3]int{now.Hour(), now.Minute(), now.Second()}
	for i := 0; i < len(parts) && i < 3; i++ {
		if parts[i] == "" {
			continue
		}
		n, convErr := strconv.Atoi(parts[i])
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("timeparse: %w: %q", ErrAmbiguousInput, parts[i])
		}
		vals[i] = n
	}
	return vals[0], vals[1], vals[2], nil
}

// splitHMS splits a time-of-day tail on whitespace and ':' boundaries,
// e.g. "18:06:34" or "18 06 34" both yield ["18", "06", "34"].
func splitHMS(s string) []string {
	if s == "" {
		return nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ':' || r == ' '
	})
	return fields
}
