package fields

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock validates an HH:MM string and normalizes it to two-digit parts.
// The empty string is allowed and means "as soon as possible".
func ParseClock(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}

	parts := strings.SplitN(trimmed, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("time must be in HH:MM format, got %q", raw)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", raw)
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// ScheduleOffsets are the quick-pick delays offered next to "as soon as
// possible" and the manual time entry.
var ScheduleOffsets = []time.Duration{
	30 * time.Minute,
	time.Hour,
	90 * time.Minute,
	2 * time.Hour,
}

// ScheduleOption is one selectable scheduled-time choice.
type ScheduleOption struct {
	// Value is the HH:MM string submitted with the order; empty means ASAP.
	Value string
	ASAP  bool
}

// ScheduleOptions generates the pick list for the given wall clock.
func ScheduleOptions(now time.Time) []ScheduleOption {
	options := make([]ScheduleOption, 0, len(ScheduleOffsets)+1)
	options = append(options, ScheduleOption{ASAP: true})
	for _, offset := range ScheduleOffsets {
		at := now.Add(offset)
		options = append(options, ScheduleOption{
			Value: fmt.Sprintf("%02d:%02d", at.Hour(), at.Minute()),
		})
	}
	return options
}
