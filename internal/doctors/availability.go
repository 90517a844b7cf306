package doctors

import (
	"fmt"
	"sort"
	"time"

	"github.com/wolfman30/doconsult-api/internal/clock"
)

// ValidateBlocks converts submitted blocks into availability rows. The whole set
// is rejected when any block is invalid.
func ValidateBlocks(inputs []AvailabilityInput) ([]Availability, error) {
	blocks := make([]Availability, 0, len(inputs))
	for i, in := range inputs {
		day, err := ParseDayOfWeek(in.DayOfWeek)
		if err != nil {
			return nil, fmt.Errorf("availability %d: %w", i, err)
		}
		start, err := clock.ParseTimeOfDay(in.StartTime)
		if err != nil {
			return nil, fmt.Errorf("availability %d: start time: %w", i, err)
		}
		end, err := clock.ParseTimeOfDay(in.EndTime)
		if err != nil {
			return nil, fmt.Errorf("availability %d: end time: %w", i, err)
		}
		if !start.Before(end) {
			return nil, fmt.Errorf("availability %d: start time %s must be before end time %s", i, start, end)
		}
		duration := in.SlotDurationMinutes
		switch {
		case duration == 0:
			duration = DefaultSlotMinutes
		case duration < 0:
			return nil, fmt.Errorf("availability %d: slot duration must be positive", i)
		}
		blocks = append(blocks, Availability{
			DayOfWeek:           day,
			StartTime:           start,
			EndTime:             end,
			SlotDurationMinutes: duration,
			Active:              true,
		})
	}
	return blocks, nil
}

// Slots expands a block into the start times of its bookable slots. A trailing
// partial slot is dropped.
func Slots(block Availability) []clock.TimeOfDay {
	step := block.SlotDurationMinutes
	if step <= 0 {
		step = DefaultSlotMinutes
	}
	var out []clock.TimeOfDay
	for start := block.StartTime.Minutes(); start+step <= block.EndTime.Minutes(); start += step {
		out = append(out, clock.TimeOfDay{Hour: start / 60, Minute: start % 60})
	}
	return out
}

// Covers reports whether slot starts a bookable slot in one of the active blocks
// for weekday.
func Covers(blocks []Availability, weekday time.Weekday, slot clock.TimeOfDay) bool {
	for _, b := range blocks {
		if !b.Active || b.DayOfWeek.Weekday() != weekday {
			continue
		}
		step := b.SlotDurationMinutes
		if step <= 0 {
			step = DefaultSlotMinutes
		}
		offset := slot.Minutes() - b.StartTime.Minutes()
		if slot.Second == 0 && offset >= 0 && offset%step == 0 && slot.Minutes()+step <= b.EndTime.Minutes() {
			return true
		}
	}
	return false
}

// OpenSlots lists the slots for date that are not in booked, in time order.
func OpenSlots(blocks []Availability, date clock.Date, booked []clock.TimeOfDay) []clock.TimeOfDay {
	taken := make(map[int]struct{}, len(booked))
	for _, b := range booked {
		taken[b.Minutes()] = struct{}{}
	}
	seen := make(map[int]struct{})
	var out []clock.TimeOfDay
	for _, b := range blocks {
		if !b.Active || b.DayOfWeek.Weekday() != date.Weekday() {
			continue
		}
		for _, s := range Slots(b) {
			m := s.Minutes()
			if _, ok := taken[m]; ok {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
