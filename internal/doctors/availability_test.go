package doctors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/doconsult-api/internal/clock"
)

func TestValidateBlocks(t *testing.T) {
	blocks, err := ValidateBlocks([]AvailabilityInput{
		{DayOfWeek: "monday", StartTime: "09:00", EndTime: "12:00"},
		{DayOfWeek: "FRIDAY", StartTime: "14:00", EndTime: "16:00", SlotDurationMinutes: 20},
	})
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, Monday, blocks[0].DayOfWeek)
	assert.Equal(t, DefaultSlotMinutes, blocks[0].SlotDurationMinutes)
	assert.True(t, blocks[0].Active)
	assert.Equal(t, 20, blocks[1].SlotDurationMinutes)
}

func TestValidateBlocksRejectsWholeSet(t *testing.T) {
	cases := map[string]AvailabilityInput{
		"start after end":   {DayOfWeek: "MONDAY", StartTime: "12:00", EndTime: "09:00"},
		"start equals end":  {DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "09:00"},
		"unparseable time":  {DayOfWeek: "MONDAY", StartTime: "9am", EndTime: "12:00"},
		"unknown day":       {DayOfWeek: "FUNDAY", StartTime: "09:00", EndTime: "12:00"},
		"negative duration": {DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "12:00", SlotDurationMinutes: -15},
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			good := AvailabilityInput{DayOfWeek: "TUESDAY", StartTime: "09:00", EndTime: "10:00"}
			blocks, err := ValidateBlocks([]AvailabilityInput{good, bad})
			assert.Error(t, err)
			assert.Nil(t, blocks)
		})
	}
}

func TestSlots(t *testing.T) {
	block := Availability{StartTime: clock.MustTime("09:00"), EndTime: clock.MustTime("10:45"), SlotDurationMinutes: 30}
	got := Slots(block)
	require.Len(t, got, 3)
	assert.Equal(t, "09:00", got[0].String())
	assert.Equal(t, "10:00", got[2].String())
}

func TestCovers(t *testing.T) {
	blocks := []Availability{
		{DayOfWeek: Monday, StartTime: clock.MustTime("09:00"), EndTime: clock.MustTime("12:00"), SlotDurationMinutes: 30, Active: true},
		{DayOfWeek: Tuesday, StartTime: clock.MustTime("09:00"), EndTime: clock.MustTime("12:00"), SlotDurationMinutes: 30, Active: false},
	}
	assert.True(t, Covers(blocks, time.Monday, clock.MustTime("09:30")))
	assert.True(t, Covers(blocks, time.Monday, clock.MustTime("11:30")))
	assert.False(t, Covers(blocks, time.Monday, clock.MustTime("12:00")), "slot would end after block")
	assert.False(t, Covers(blocks, time.Monday, clock.MustTime("09:15")), "misaligned")
	assert.False(t, Covers(blocks, time.Monday, clock.MustTime("08:30")))
	assert.False(t, Covers(blocks, time.Tuesday, clock.MustTime("09:00")), "inactive block")
	assert.False(t, Covers(blocks, time.Wednesday, clock.MustTime("09:00")))
}

func TestOpenSlots(t *testing.T) {
	blocks := []Availability{
		{DayOfWeek: Monday, StartTime: clock.MustTime("10:00"), EndTime: clock.MustTime("11:00"), SlotDurationMinutes: 30, Active: true},
		{DayOfWeek: Monday, StartTime: clock.MustTime("09:00"), EndTime: clock.MustTime("10:00"), SlotDurationMinutes: 30, Active: true},
	}
	monday := clock.MustDate("2024-06-10")
	open := OpenSlots(blocks, monday, []clock.TimeOfDay{clock.MustTime("09:30")})
	var got []string
	for _, s := range open {
		got = append(got, s.String())
	}
	assert.Equal(t, []string{"09:00", "10:00", "10:30"}, got)
	assert.Empty(t, OpenSlots(blocks, monday.AddDays(1), nil))
}
